package domain

import (
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// idDigits is the mandated length of populationId and familyId.
const idDigits = 16

// PersonRecord is one population registry entry.
//
// ID is assigned by the registry server; client-generated ids are temporary
// placeholders (see repository.PlaceholderID) that exist only between an
// optimistic insert and the server's confirmation.
type PersonRecord struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	PopulationID string    `json:"populationId"`
	FamilyID     string    `json:"familyId"`
	Gender       Gender    `json:"gender"`
	DateOfBirth  string    `json:"dateOfBirth"`
	PlaceOfBirth string    `json:"placeOfBirth"`
	Religion     string    `json:"religion"`
	BloodType    BloodType `json:"bloodType"`
}

// Normalize trims surrounding whitespace from every string field.
func (p *PersonRecord) Normalize() {
	p.ID = strings.TrimSpace(p.ID)
	p.FullName = strings.TrimSpace(p.FullName)
	p.PopulationID = strings.TrimSpace(p.PopulationID)
	p.FamilyID = strings.TrimSpace(p.FamilyID)
	p.DateOfBirth = strings.TrimSpace(p.DateOfBirth)
	p.PlaceOfBirth = strings.TrimSpace(p.PlaceOfBirth)
	p.Religion = strings.TrimSpace(p.Religion)
}

// Validate checks all field-level rules. It returns a *ValidationError
// (wrapping ErrValidation) listing every violated field, or nil.
// now anchors the date-of-birth future check.
func (p PersonRecord) Validate(now time.Time) error {
	var errs []FieldError

	if strings.TrimSpace(p.FullName) == "" {
		errs = append(errs, FieldError{Field: "fullName", Message: "must not be empty"})
	}
	if !isDecimalID(p.PopulationID) {
		errs = append(errs, FieldError{Field: "populationId", Message: "must be exactly 16 decimal digits"})
	}
	if !isDecimalID(p.FamilyID) {
		errs = append(errs, FieldError{Field: "familyId", Message: "must be exactly 16 decimal digits"})
	}
	if !p.Gender.IsValid() {
		errs = append(errs, FieldError{Field: "gender", Message: "must be Male or Female"})
	}
	if dob, err := time.Parse(DateLayout, p.DateOfBirth); err != nil {
		errs = append(errs, FieldError{Field: "dateOfBirth", Message: "must be a valid date (YYYY-MM-DD)"})
	} else if dob.After(now) {
		errs = append(errs, FieldError{Field: "dateOfBirth", Message: "must not be in the future"})
	}
	if strings.TrimSpace(p.PlaceOfBirth) == "" {
		errs = append(errs, FieldError{Field: "placeOfBirth", Message: "must not be empty"})
	}
	if strings.TrimSpace(p.Religion) == "" {
		errs = append(errs, FieldError{Field: "religion", Message: "must not be empty"})
	}
	if !p.BloodType.IsValid() {
		errs = append(errs, FieldError{Field: "bloodType", Message: "must be one of A+ A- B+ B- AB+ AB- O+ O-"})
	}

	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// isDecimalID reports whether s is exactly 16 ASCII decimal digits.
func isDecimalID(s string) bool {
	if len(s) != idDigits {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
