package qr

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataURLIsDecodablePNG(t *testing.T) {
	gen := NewQRGenerator()

	url, err := gen.DataURL("0b6f8a4e-6a43-4c55-9d38-5d1d7b6f1f0a")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, dataURLPrefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, dataURLPrefix))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}

func TestDataURLIsDeterministic(t *testing.T) {
	gen := NewQRGenerator()

	a, err := gen.DataURL("ticket-1")
	require.NoError(t, err)
	b, err := gen.DataURL("ticket-1")
	require.NoError(t, err)
	c, err := gen.DataURL("ticket-2")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestEmptyPayload(t *testing.T) {
	_, err := NewQRGenerator().DataURL("")
	assert.Error(t, err)
}
