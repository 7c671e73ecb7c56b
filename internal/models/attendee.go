package models

import (
	"bytes"
	"encoding/json"
)

// UnmarshalJSON keeps older clients working that send attendees as plain names.
func (a *AttendeeInput) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*a = AttendeeInput{Name: name}
		return nil
	}
	type plain AttendeeInput
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return err
	}
	*a = AttendeeInput(p)
	return nil
}
