package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleAttendee struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type sampleRequest struct {
	Phone     string           `json:"phone" validate:"required,phone"`
	Attendees []sampleAttendee `json:"attendees" validate:"required,min=1,dive"`
	Gender    string           `json:"gender" validate:"omitempty,oneof=male female other"`
}

func TestValidatorPhoneRule(t *testing.T) {
	v := NewValidator()

	err := v.Struct(sampleRequest{Phone: "12345", Attendees: []sampleAttendee{{Name: "A"}}})
	require.Error(t, err)
	assert.Equal(t, `"phone" must be a 10-digit phone number`, err.Error())

	assert.NoError(t, v.Struct(sampleRequest{Phone: "9999999999", Attendees: []sampleAttendee{{Name: "A"}}}))
}

func TestValidatorUsesJSONNamesForNestedFields(t *testing.T) {
	v := NewValidator()

	err := v.Struct(sampleRequest{Phone: "9999999999", Attendees: []sampleAttendee{{Name: ""}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"attendees[0].name"`)
}

func TestValidatorEmptySlice(t *testing.T) {
	v := NewValidator()

	err := v.Struct(sampleRequest{Phone: "9999999999", Attendees: []sampleAttendee{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1 items")
}

func TestValidatorOneOf(t *testing.T) {
	v := NewValidator()

	err := v.Struct(sampleRequest{Phone: "9999999999", Attendees: []sampleAttendee{{Name: "A"}}, Gender: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "male, female, other")
}

func TestVarUUID(t *testing.T) {
	v := NewValidator()

	err := v.Var("id", "not-a-uuid", "required,uuid")
	require.Error(t, err)
	assert.Equal(t, `"id" must be a valid ticket id`, err.Error())
	assert.NoError(t, v.Var("id", "0b6f8a4e-6a43-4c55-9d38-5d1d7b6f1f0a", "required,uuid"))
}
