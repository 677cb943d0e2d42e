package domain

import (
	"errors"
	"testing"
	"time"
)

func validPerson() PersonRecord {
	return PersonRecord{
		ID:           "42",
		FullName:     "John Doe",
		PopulationID: "1234567890123456",
		FamilyID:     "1111111111111111",
		Gender:       GenderMale,
		DateOfBirth:  "1990-05-15",
		PlaceOfBirth: "Jakarta",
		Religion:     "Islam",
		BloodType:    BloodTypeAPos,
	}
}

func TestPersonRecord_Validate_OK(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := validPerson().Validate(now); err != nil {
		t.Fatalf("Validate returned %v, want nil", err)
	}
}

func TestPersonRecord_Validate_PopulationID(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		id    string
		valid bool
	}{
		{"sixteen digits", "1234567890123456", true},
		{"too short", "12345", false},
		{"letters", "12345678901234ab", false},
		{"too long", "12345678901234567", false},
		{"empty", "", false},
		{"spaces inside", "1234 567890123456", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPerson()
			p.PopulationID = tc.id
			err := p.Validate(now)
			if tc.valid && err != nil {
				t.Fatalf("Validate(%q) = %v, want nil", tc.id, err)
			}
			if !tc.valid {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate(%q) = %v, want ErrValidation", tc.id, err)
				}
			}
		})
	}
}

func TestPersonRecord_Validate_DateOfBirth(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p := validPerson()
	p.DateOfBirth = "2030-01-01"
	if err := p.Validate(now); !errors.Is(err, ErrValidation) {
		t.Errorf("future date of birth: got %v, want ErrValidation", err)
	}

	p.DateOfBirth = "not-a-date"
	if err := p.Validate(now); !errors.Is(err, ErrValidation) {
		t.Errorf("garbage date of birth: got %v, want ErrValidation", err)
	}
}

func TestPersonRecord_Validate_CollectsAllFields(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	p := PersonRecord{} // everything wrong
	err := p.Validate(now)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Errors) != 8 {
		t.Errorf("expected 8 field errors, got %d: %v", len(verr.Errors), verr.Errors)
	}
}

func TestPersonRecord_Normalize(t *testing.T) {
	p := PersonRecord{
		FullName:     "  John Doe ",
		PlaceOfBirth: " Jakarta",
		Religion:     "Islam ",
		PopulationID: " 1234567890123456 ",
	}
	p.Normalize()

	if p.FullName != "John Doe" {
		t.Errorf("FullName = %q", p.FullName)
	}
	if p.PlaceOfBirth != "Jakarta" {
		t.Errorf("PlaceOfBirth = %q", p.PlaceOfBirth)
	}
	if p.PopulationID != "1234567890123456" {
		t.Errorf("PopulationID = %q", p.PopulationID)
	}
}

func TestEnums_IsValid(t *testing.T) {
	if !GenderFemale.IsValid() || Gender("Other").IsValid() {
		t.Error("Gender.IsValid misbehaves")
	}
	for _, b := range []BloodType{BloodTypeAPos, BloodTypeANeg, BloodTypeBPos, BloodTypeBNeg, BloodTypeABPos, BloodTypeABNeg, BloodTypeOPos, BloodTypeONeg} {
		if !b.IsValid() {
			t.Errorf("BloodType %q should be valid", b)
		}
	}
	if BloodType("C+").IsValid() {
		t.Error(`BloodType "C+" should be invalid`)
	}
	if !RoleAdmin.IsValid() || !RoleUser.IsValid() {
		t.Error("known roles should be valid")
	}
	if Role("superuser").IsValid() || Role("").IsValid() {
		t.Error("Role.IsValid misbehaves")
	}
}
