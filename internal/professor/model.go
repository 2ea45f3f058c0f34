package professor

import (
	"strings"

	"membership-service/internal/store"
	"membership-service/internal/validation"

	"github.com/uptrace/bun"
)

const Collection = "professors"

type Professor struct {
	bun.BaseModel `bun:"table:professors" bson:"-" json:"-"`
	store.Base    `bson:",inline"`

	Name              string `bun:"name,notnull" bson:"name" json:"name" validate:"required"`
	Department        string `bun:"department,notnull" bson:"department" json:"department" validate:"required"`
	Email             string `bun:"email,notnull" bson:"email" json:"email" validate:"required,emailaddr"`
	Phone             string `bun:"phone" bson:"phone,omitempty" json:"phone,omitempty" validate:"omitempty,phone10"`
	ProfilePictureURL string `bun:"profile_picture_url,notnull" bson:"profile_picture_url" json:"profilePictureUrl" validate:"required,url"`
	BitsProfileURL    string `bun:"bits_profile_url,notnull" bson:"bits_profile_url" json:"bitsProfileUrl" validate:"required,url"`
}

func (p *Professor) Validate() error {
	return validation.Struct(p)
}

type CreateProfessorRequest struct {
	Name              string `json:"name" validate:"required"`
	Department        string `json:"department" validate:"required"`
	Email             string `json:"email" validate:"required,emailaddr"`
	Phone             string `json:"phone" validate:"omitempty,phone10"`
	ProfilePictureURL string `json:"profilePictureUrl" validate:"omitempty,url"`
	BitsProfileURL    string `json:"bitsProfileUrl" validate:"required,url"`
}

func (r *CreateProfessorRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Department = strings.TrimSpace(r.Department)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.ProfilePictureURL = strings.TrimSpace(r.ProfilePictureURL)
	r.BitsProfileURL = strings.TrimSpace(r.BitsProfileURL)
}
