package repository

import "github.com/harunwdi/hrds/internal/domain"

// SamplePersons returns the placeholder dataset shown when the very first
// snapshot load fails and nothing is cached yet.
func SamplePersons() []domain.PersonRecord {
	return []domain.PersonRecord{
		{
			ID:           "1",
			FullName:     "John Doe",
			PopulationID: "1234567890123456",
			FamilyID:     "1111111111111111",
			Gender:       domain.GenderMale,
			DateOfBirth:  "1990-05-15",
			PlaceOfBirth: "Jakarta",
			Religion:     "Islam",
			BloodType:    domain.BloodTypeAPos,
		},
		{
			ID:           "2",
			FullName:     "Jane Smith",
			PopulationID: "6543210987654321",
			FamilyID:     "2222222222222222",
			Gender:       domain.GenderFemale,
			DateOfBirth:  "1985-12-08",
			PlaceOfBirth: "Surabaya",
			Religion:     "Christian",
			BloodType:    domain.BloodTypeBPos,
		},
		{
			ID:           "3",
			FullName:     "Ahmad Rahman",
			PopulationID: "1122334455667788",
			FamilyID:     "3333333333333333",
			Gender:       domain.GenderMale,
			DateOfBirth:  "1992-03-22",
			PlaceOfBirth: "Bandung",
			Religion:     "Islam",
			BloodType:    domain.BloodTypeOPos,
		},
	}
}
