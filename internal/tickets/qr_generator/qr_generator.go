package qr

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

type QRGenerator struct {
	level qrcode.RecoveryLevel
	size  int
}

func NewQRGenerator() *QRGenerator {
	return &QRGenerator{level: qrcode.Medium, size: 256}
}

// PNG encodes payload as a QR code image.
func (q *QRGenerator) PNG(payload string) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("empty qr payload")
	}
	png, err := qrcode.Encode(payload, q.level, q.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// DataURL returns the QR code for ticketID as a data:image/png URL. The code
// carries only the ticket id, so it never needs regenerating.
func (q *QRGenerator) DataURL(ticketID string) (string, error) {
	png, err := q.PNG(ticketID)
	if err != nil {
		return "", err
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}
