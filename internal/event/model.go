package event

import (
	"strings"
	"time"

	"membership-service/internal/store"
	"membership-service/internal/validation"

	"github.com/uptrace/bun"
)

const (
	Collection         = "events"
	UpcomingCollection = "upcoming_events"
)

const (
	CategoryCultural    = "Cultural"
	CategoryWorkshop    = "Workshop"
	CategoryCompetition = "Competition"
	CategoryGeneral     = "General"
)

const (
	DefaultVenue      = "To be announced"
	MaxUpcomingImages = 5
)

type Event struct {
	bun.BaseModel `bun:"table:events" bson:"-" json:"-"`
	store.Base    `bson:",inline"`

	Title       string    `bun:"title,notnull" bson:"title" json:"title" validate:"required"`
	Description string    `bun:"description,notnull" bson:"description" json:"description" validate:"required"`
	Date        time.Time `bun:"date,notnull" bson:"date" json:"date" validate:"required"`
	Time        string    `bun:"time,notnull" bson:"time" json:"time" validate:"required"`
	Venue       string    `bun:"venue,notnull" bson:"venue" json:"venue" validate:"required"`
	ImageURLs   []string  `bun:"image_urls,array" bson:"image_urls" json:"imageUrls" validate:"min=1,dive,url"`
	Category    string    `bun:"category,notnull" bson:"category" json:"category" validate:"oneof=Cultural Workshop Competition General"`
}

func (e *Event) Validate() error {
	return validation.Struct(e)
}

// UpcomingEvent is the single event spotlighted on the home page.
type UpcomingEvent struct {
	bun.BaseModel `bun:"table:upcoming_events" bson:"-" json:"-"`
	store.Base    `bson:",inline"`

	Title         string    `bun:"title,notnull" bson:"title" json:"title" validate:"required"`
	Description   string    `bun:"description,notnull" bson:"description" json:"description" validate:"required"`
	Date          time.Time `bun:"date,notnull" bson:"date" json:"date" validate:"required"`
	Time          string    `bun:"time,notnull" bson:"time" json:"time" validate:"required"`
	Venue         string    `bun:"venue,notnull" bson:"venue" json:"venue" validate:"required"`
	ImageURLs     []string  `bun:"image_urls,array" bson:"image_urls" json:"imageUrls" validate:"min=1,max=5,dive,url"`
	ContactPerson string    `bun:"contact_person" bson:"contact_person,omitempty" json:"contactPerson,omitempty"`
}

func (e *UpcomingEvent) Validate() error {
	return validation.Struct(e)
}

type CreateEventRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Date        string   `json:"date"`
	Time        string   `json:"time" validate:"required"`
	Venue       string   `json:"venue" validate:"required"`
	ImageURLs   []string `json:"imageUrls" validate:"dive,url"`
	Category    string   `json:"category" validate:"oneof=Cultural Workshop Competition General"`
}

func (r *CreateEventRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Time = strings.TrimSpace(r.Time)
	r.Venue = strings.TrimSpace(r.Venue)
	r.Category = strings.TrimSpace(r.Category)
	if r.Category == "" {
		r.Category = CategoryGeneral
	}
	r.ImageURLs = trimAll(r.ImageURLs)
}

type ReplaceUpcomingEventRequest struct {
	Title         string   `json:"title" validate:"required"`
	Description   string   `json:"description" validate:"required"`
	Date          string   `json:"date"`
	Time          string   `json:"time" validate:"required"`
	Venue         string   `json:"venue"`
	ImageURLs     []string `json:"imageUrls" validate:"dive,url"`
	ContactPerson string   `json:"contactPerson"`
}

func (r *ReplaceUpcomingEventRequest) normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Time = strings.TrimSpace(r.Time)
	r.Venue = strings.TrimSpace(r.Venue)
	if r.Venue == "" {
		r.Venue = DefaultVenue
	}
	r.ContactPerson = strings.TrimSpace(r.ContactPerson)
	r.ImageURLs = trimAll(r.ImageURLs)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
