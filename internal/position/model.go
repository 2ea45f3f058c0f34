package position

import (
	"strings"

	"membership-service/internal/store"
	"membership-service/internal/validation"

	"github.com/uptrace/bun"
)

const Collection = "positions"

// Holder is a member holding a position of responsibility.
type Holder struct {
	bun.BaseModel `bun:"table:positions" bson:"-" json:"-"`
	store.Base    `bson:",inline"`

	Name           string `bun:"name,notnull" bson:"name" json:"name" validate:"required"`
	InstitutionID  string `bun:"bits_id,notnull" bson:"bits_id" json:"bitsId" validate:"required"`
	Email          string `bun:"email,notnull" bson:"email" json:"email" validate:"required,emailaddr"`
	Mobile         string `bun:"mobile,notnull" bson:"mobile" json:"mobile" validate:"required"`
	Position       string `bun:"position,notnull" bson:"position" json:"position" validate:"required"`
	Department     string `bun:"department" bson:"department" json:"department"`
	ProfilePicture string `bun:"profile_picture" bson:"profile_picture,omitempty" json:"profilePicture,omitempty" validate:"omitempty,url"`
	Description    string `bun:"description,notnull" bson:"description" json:"description" validate:"required"`
	Linkedin       string `bun:"linkedin" bson:"linkedin" json:"linkedin"`
}

func (h *Holder) Validate() error {
	return validation.Struct(h)
}

type CreateHolderRequest struct {
	Name           string `json:"name" validate:"required"`
	InstitutionID  string `json:"bitsId" validate:"required"`
	Email          string `json:"email" validate:"required,emailaddr"`
	Mobile         string `json:"mobile" validate:"required"`
	Position       string `json:"position" validate:"required"`
	Department     string `json:"department"`
	ProfilePicture string `json:"profilePicture" validate:"omitempty,url"`
	Description    string `json:"description" validate:"required"`
	Linkedin       string `json:"linkedin"`
}

func (r *CreateHolderRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.InstitutionID = strings.ToUpper(strings.TrimSpace(r.InstitutionID))
	r.Email = strings.TrimSpace(r.Email)
	r.Mobile = strings.TrimSpace(r.Mobile)
	r.Position = strings.TrimSpace(r.Position)
	r.Department = strings.TrimSpace(r.Department)
	r.ProfilePicture = strings.TrimSpace(r.ProfilePicture)
	r.Description = strings.TrimSpace(r.Description)
	r.Linkedin = strings.TrimSpace(r.Linkedin)
}
