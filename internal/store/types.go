package store

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"visitor-register-backend/internal/model"
)

// CreateRequest carries the caller-supplied attributes of a new entry.
// Server-assigned fields (id, number, status, times) are never taken from it.
type CreateRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Purpose     string `json:"purpose"`
	WhomToMeet  string `json:"whom_to_meet"`
	PhoneNumber string `json:"phone_number"`
}

// Normalized returns a copy with surrounding whitespace removed.
func (r CreateRequest) Normalized() CreateRequest {
	return CreateRequest{
		Name:        strings.TrimSpace(r.Name),
		Address:     strings.TrimSpace(r.Address),
		Purpose:     strings.TrimSpace(r.Purpose),
		WhomToMeet:  strings.TrimSpace(r.WhomToMeet),
		PhoneNumber: strings.TrimSpace(r.PhoneNumber),
	}
}

// MissingFields returns the names of mandatory fields left empty. Name and
// address are always mandatory; withDetails adds the visit details.
func (r CreateRequest) MissingFields(withDetails bool) []string {
	r = r.Normalized()
	var missing []string
	if r.Name == "" {
		missing = append(missing, "name")
	}
	if r.Address == "" {
		missing = append(missing, "address")
	}
	if withDetails {
		if r.Purpose == "" {
			missing = append(missing, "purpose")
		}
		if r.WhomToMeet == "" {
			missing = append(missing, "whom_to_meet")
		}
		if r.PhoneNumber == "" {
			missing = append(missing, "phone_number")
		}
	}
	return missing
}

// TooLongFields returns the names of fields wider than their column.
func (r CreateRequest) TooLongFields() []string {
	r = r.Normalized()
	var long []string
	for _, f := range []struct {
		name  string
		value string
		max   int
	}{
		{"name", r.Name, model.MaxNameLen},
		{"address", r.Address, model.MaxAddressLen},
		{"purpose", r.Purpose, model.MaxPurposeLen},
		{"whom_to_meet", r.WhomToMeet, model.MaxWhomToMeetLen},
		{"phone_number", r.PhoneNumber, model.MaxPhoneNumberLen},
	} {
		if utf8.RuneCountInString(f.value) > f.max {
			long = append(long, f.name)
		}
	}
	return long
}

func (r CreateRequest) invalidFields(withDetails bool) []string {
	return append(r.MissingFields(withDetails), r.TooLongFields()...)
}

// Validate returns a *ValidationError when mandatory fields are missing or
// a field does not fit its column.
func (r CreateRequest) Validate(withDetails bool) error {
	if invalid := r.invalidFields(withDetails); len(invalid) > 0 {
		return &ValidationError{Fields: invalid}
	}
	return nil
}

func validateBatch(reqs []CreateRequest) error {
	var fields []string
	for i, r := range reqs {
		for _, f := range r.invalidFields(false) {
			fields = append(fields, fmt.Sprintf("rows[%d].%s", i, f))
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func (r CreateRequest) toEntry() model.Entry {
	r = r.Normalized()
	return model.Entry{
		Name:        r.Name,
		Address:     r.Address,
		Purpose:     r.Purpose,
		WhomToMeet:  r.WhomToMeet,
		PhoneNumber: r.PhoneNumber,
		Status:      model.StatusEntered,
	}
}
