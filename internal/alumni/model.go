package alumni

import (
	"strings"

	"membership-service/internal/store"
	"membership-service/internal/validation"

	"github.com/uptrace/bun"
)

const Collection = "alumni"

type Alumni struct {
	bun.BaseModel `bun:"table:alumni" bson:"-" json:"-"`
	store.Base    `bson:",inline"`

	Name               string `bun:"name,notnull" bson:"name" json:"name" validate:"required"`
	GraduationYear     int    `bun:"graduation_year,notnull" bson:"graduation_year" json:"graduationYear" validate:"gradyear"`
	Degree             string `bun:"degree,notnull" bson:"degree" json:"degree" validate:"required"`
	CurrentCompany     string `bun:"current_company" bson:"current_company,omitempty" json:"currentCompany,omitempty"`
	Position           string `bun:"position" bson:"position,omitempty" json:"position,omitempty"`
	Email              string `bun:"email,notnull" bson:"email" json:"email" validate:"required,emailaddr"`
	Phone              string `bun:"phone" bson:"phone,omitempty" json:"phone,omitempty"`
	LinkedinProfileURL string `bun:"linkedin_profile_url" bson:"linkedin_profile_url,omitempty" json:"linkedinProfileUrl,omitempty" validate:"omitempty,url"`
	ProfilePictureURL  string `bun:"profile_picture_url,notnull" bson:"profile_picture_url" json:"profilePictureUrl" validate:"required,url"`
}

func (a *Alumni) Validate() error {
	return validation.Struct(a)
}

// CreateAlumniRequest is the admin form. ProfilePictureURL is set when the
// client uploaded the picture itself; otherwise the picture arrives as the
// multipart file "profilePicture".
type CreateAlumniRequest struct {
	Name               string `json:"name" validate:"required"`
	GraduationYear     int    `json:"graduationYear" validate:"gradyear"`
	Degree             string `json:"degree" validate:"required"`
	CurrentCompany     string `json:"currentCompany"`
	Position           string `json:"position"`
	Email              string `json:"email" validate:"required,emailaddr"`
	Phone              string `json:"phone"`
	LinkedinProfileURL string `json:"linkedinProfileUrl" validate:"omitempty,url"`
	ProfilePictureURL  string `json:"profilePictureUrl" validate:"omitempty,url"`
}

func (r *CreateAlumniRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Degree = strings.TrimSpace(r.Degree)
	r.CurrentCompany = strings.TrimSpace(r.CurrentCompany)
	r.Position = strings.TrimSpace(r.Position)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.LinkedinProfileURL = strings.TrimSpace(r.LinkedinProfileURL)
	r.ProfilePictureURL = strings.TrimSpace(r.ProfilePictureURL)
}
