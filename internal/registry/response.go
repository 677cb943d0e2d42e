package registry

import "github.com/harunwdi/hrds/internal/domain"

// row is one record as the registry serves it. Fields may be missing in
// legacy rows; toPerson fills the documented defaults.
type row struct {
	ID           string `json:"id"`
	FullName     string `json:"fullName"`
	PopulationID string `json:"populationId"`
	FamilyID     string `json:"familyId"`
	Gender       string `json:"gender"`
	DateOfBirth  string `json:"dateOfBirth"`
	PlaceOfBirth string `json:"placeOfBirth"`
	Religion     string `json:"religion"`
	BloodType    string `json:"bloodType"`
}

// toPerson normalizes a wire row into a domain record.
// Missing gender defaults to Male, missing blood type to A+.
func (r row) toPerson() domain.PersonRecord {
	gender := domain.Gender(r.Gender)
	if !gender.IsValid() {
		gender = domain.GenderMale
	}
	blood := domain.BloodType(r.BloodType)
	if !blood.IsValid() {
		blood = domain.BloodTypeAPos
	}

	return domain.PersonRecord{
		ID:           r.ID,
		FullName:     r.FullName,
		PopulationID: r.PopulationID,
		FamilyID:     r.FamilyID,
		Gender:       gender,
		DateOfBirth:  r.DateOfBirth,
		PlaceOfBirth: r.PlaceOfBirth,
		Religion:     r.Religion,
		BloodType:    blood,
	}
}

// createRequest is the outgoing record payload. The id is never sent: the
// server assigns ids on create and takes the target id from the URL on
// update.
type createRequest struct {
	FullName     string `json:"fullName"`
	PopulationID string `json:"populationId"`
	FamilyID     string `json:"familyId"`
	Gender       string `json:"gender"`
	DateOfBirth  string `json:"dateOfBirth"`
	PlaceOfBirth string `json:"placeOfBirth"`
	Religion     string `json:"religion"`
	BloodType    string `json:"bloodType"`
}

func toCreateRequest(p domain.PersonRecord) createRequest {
	return createRequest{
		FullName:     p.FullName,
		PopulationID: p.PopulationID,
		FamilyID:     p.FamilyID,
		Gender:       p.Gender.String(),
		DateOfBirth:  p.DateOfBirth,
		PlaceOfBirth: p.PlaceOfBirth,
		Religion:     p.Religion,
		BloodType:    p.BloodType.String(),
	}
}

// userPayload is the identity shape shared by /authenticate and /auth/google.
type userPayload struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

func (u userPayload) toIdentity() *domain.Identity {
	id := &domain.Identity{
		Name:    u.Name,
		Subject: u.Email,
	}
	if u.Picture != "" {
		picture := u.Picture
		id.AvatarURL = &picture
	}
	return id
}

type authenticateResponse struct {
	User userPayload `json:"user"`
}

type googleExchangeRequest struct {
	Token string `json:"token"`
}

type googleExchangeResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}
