package alumni

import (
	"context"

	"membership-service/internal/asset"
	"membership-service/internal/store"
	"membership-service/internal/submission"
	"membership-service/internal/validation"
)

const PictureField = "profilePicture"

type Service interface {
	ListAlumni(ctx context.Context) ([]Alumni, error)
	CreateAlumni(ctx context.Context, req CreateAlumniRequest, pictures []asset.File) (*Alumni, error)
}

type service struct {
	alumni      store.Collection[Alumni]
	coordinator *submission.Coordinator
}

func NewService(alumni store.Collection[Alumni], coordinator *submission.Coordinator) Service {
	return &service{
		alumni:      alumni,
		coordinator: coordinator,
	}
}

// ListAlumni returns the most recent graduates first. Phone numbers are not
// part of the public listing.
func (s *service) ListAlumni(ctx context.Context) ([]Alumni, error) {
	list, err := s.alumni.FindMany(ctx, nil, store.Desc("graduation_year"))
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Phone = ""
	}
	return list, nil
}

func (s *service) CreateAlumni(ctx context.Context, req CreateAlumniRequest, pictures []asset.File) (*Alumni, error) {
	req.normalize()

	plan := submission.Plan[Alumni]{
		Kind: Collection,
		Validate: func(ctx context.Context) error {
			if len(pictures) > 1 {
				return validation.Field(PictureField, "only one profile picture is allowed")
			}
			return validation.Struct(&req)
		},
		Files:        pictures,
		RequireAsset: true,
		AssetField:   "profilePictureUrl",
		Build: func(refs []asset.Ref) (*Alumni, error) {
			return &Alumni{
				Name:               req.Name,
				GraduationYear:     req.GraduationYear,
				Degree:             req.Degree,
				CurrentCompany:     req.CurrentCompany,
				Position:           req.Position,
				Email:              req.Email,
				Phone:              req.Phone,
				LinkedinProfileURL: req.LinkedinProfileURL,
				ProfilePictureURL:  refs[0].URL,
			}, nil
		},
		Persist: s.alumni.Create,
	}
	if req.ProfilePictureURL != "" && len(pictures) == 0 {
		plan.Uploaded = []asset.Ref{{URL: req.ProfilePictureURL}}
	}

	return submission.Run(ctx, s.coordinator, plan)
}
