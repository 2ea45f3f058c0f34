package member

import (
	"strings"
	"time"

	"membership-service/internal/store"
	"membership-service/internal/validation"

	"github.com/uptrace/bun"
)

const Collection = "members"

type Member struct {
	bun.BaseModel `bun:"table:members" bson:"-" json:"-"`
	store.Base    `bson:",inline"`

	Name           string    `bun:"name,notnull" bson:"name" json:"name" validate:"required,min=2"`
	InstitutionID  string    `bun:"bits_id,notnull" bson:"bits_id" json:"bitsId" validate:"required"`
	DateOfBirth    time.Time `bun:"date_of_birth,notnull" bson:"date_of_birth" json:"dateOfBirth" validate:"required"`
	Mobile         string    `bun:"mobile,notnull" bson:"mobile" json:"mobile" validate:"required,mobile"`
	Email          string    `bun:"email,notnull" bson:"email" json:"email" validate:"required,emailaddr"`
	Hostel         string    `bun:"hostel,notnull" bson:"hostel" json:"hostel" validate:"required"`
	RoomNo         string    `bun:"room_no,notnull" bson:"room_no" json:"roomNo" validate:"required"`
	HomeAddress    string    `bun:"home_address,notnull" bson:"home_address" json:"homeAddress" validate:"required,min=10"`
	Department     string    `bun:"department" bson:"department" json:"department"`
	Clubs          []string  `bun:"clubs,array" bson:"clubs" json:"clubs"`
	ProfilePicture string    `bun:"profile_picture" bson:"profile_picture,omitempty" json:"profilePicture,omitempty" validate:"omitempty,url"`
	Approved       bool      `bun:"approved,notnull" bson:"approved" json:"approved"`
}

func (m *Member) Validate() error {
	return validation.Struct(m)
}

// RegisterRequest is the public self-registration form.
type RegisterRequest struct {
	Name           string   `json:"name" validate:"required,min=2"`
	InstitutionID  string   `json:"bitsId" validate:"required"`
	DateOfBirth    string   `json:"dateOfBirth"`
	Mobile         string   `json:"mobile" validate:"required,mobile"`
	Email          string   `json:"email" validate:"required,emailaddr"`
	Hostel         string   `json:"hostel" validate:"required"`
	RoomNo         string   `json:"roomNo" validate:"required"`
	HomeAddress    string   `json:"homeAddress" validate:"required,min=10"`
	Department     string   `json:"department"`
	Clubs          []string `json:"clubs"`
	ProfilePicture string   `json:"profilePicture" validate:"omitempty,url"`
}

func (r *RegisterRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.InstitutionID = strings.ToUpper(strings.TrimSpace(r.InstitutionID))
	r.Mobile = strings.TrimSpace(r.Mobile)
	r.Email = strings.TrimSpace(r.Email)
	r.Hostel = strings.TrimSpace(r.Hostel)
	r.RoomNo = strings.TrimSpace(r.RoomNo)
	r.HomeAddress = strings.TrimSpace(r.HomeAddress)
	r.Department = strings.TrimSpace(r.Department)
	r.ProfilePicture = strings.TrimSpace(r.ProfilePicture)

	clubs := make([]string, 0, len(r.Clubs))
	for _, c := range r.Clubs {
		if c = strings.TrimSpace(c); c != "" {
			clubs = append(clubs, c)
		}
	}
	r.Clubs = clubs
}
