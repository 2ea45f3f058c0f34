package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string   `json:"name" validate:"required,min=2"`
	Email  string   `json:"email" validate:"required,emailaddr"`
	Mobile string   `json:"mobile" validate:"required,mobile"`
	Phone  string   `json:"phone" validate:"omitempty,phone10"`
	Year   int      `json:"graduationYear" validate:"gradyear"`
	Kind   string   `json:"category" validate:"oneof=Cultural Workshop Competition General"`
	Images []string `json:"imageUrls" validate:"min=1,max=5"`
}

func validSample() sample {
	return sample{
		Name:   "Asha",
		Email:  "asha.k@example.com",
		Mobile: "9876543210",
		Year:   2020,
		Kind:   "General",
		Images: []string{"a"},
	}
}

func TestValidator(t *testing.T) {
	v := New()
	v.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }

	t.Run("valid", func(t *testing.T) {
		s := validSample()
		assert.NoError(t, v.Struct(&s))
	})

	tests := []struct {
		name   string
		mutate func(*sample)
		field  string
	}{
		{"missing name", func(s *sample) { s.Name = "" }, "name"},
		{"short name", func(s *sample) { s.Name = "A" }, "name"},
		{"bad email", func(s *sample) { s.Email = "not-an-email" }, "email"},
		{"mobile starting with 5", func(s *sample) { s.Mobile = "5876543210" }, "mobile"},
		{"mobile too short", func(s *sample) { s.Mobile = "98765" }, "mobile"},
		{"phone with letters", func(s *sample) { s.Phone = "98765abcde" }, "phone"},
		{"year before 1964", func(s *sample) { s.Year = 1963 }, "graduationYear"},
		{"year in future", func(s *sample) { s.Year = 2026 }, "graduationYear"},
		{"unknown category", func(s *sample) { s.Kind = "Party" }, "category"},
		{"no images", func(s *sample) { s.Images = nil }, "imageUrls"},
		{"too many images", func(s *sample) { s.Images = []string{"1", "2", "3", "4", "5", "6"} }, "imageUrls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSample()
			tt.mutate(&s)

			err := v.Struct(&s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))

			fields := Fields(err)
			require.Contains(t, fields, tt.field)
			assert.NotEmpty(t, fields[tt.field])
		})
	}

	t.Run("boundary years accepted", func(t *testing.T) {
		for _, year := range []int{1964, 2025} {
			s := validSample()
			s.Year = year
			assert.NoError(t, v.Struct(&s), "year %d", year)
		}
	})
}

func TestField(t *testing.T) {
	err := Field("profilePicture", "profile picture is required")

	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "profilePicture: profile picture is required", err.Error())
	assert.Equal(t, map[string]string{"profilePicture": "profile picture is required"}, Fields(err))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("date", "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("date", "2025-03-01T18:30:00+05:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("date", "")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "date is required", Fields(err)["date"])

	_, err = ParseDate("dateOfBirth", "01/03/2025")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, Fields(err), "dateOfBirth")
}
