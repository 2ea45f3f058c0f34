package professor

import (
	"context"

	"membership-service/internal/asset"
	"membership-service/internal/store"
	"membership-service/internal/submission"
	"membership-service/internal/validation"
)

const PictureField = "profilePicture"

type Service interface {
	ListProfessors(ctx context.Context) ([]Professor, error)
	CreateProfessor(ctx context.Context, req CreateProfessorRequest, pictures []asset.File) (*Professor, error)
}

type service struct {
	professors  store.Collection[Professor]
	coordinator *submission.Coordinator
}

func NewService(professors store.Collection[Professor], coordinator *submission.Coordinator) Service {
	return &service{
		professors:  professors,
		coordinator: coordinator,
	}
}

func (s *service) ListProfessors(ctx context.Context) ([]Professor, error) {
	list, err := s.professors.FindMany(ctx, nil, store.Asc("name"))
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Phone = ""
	}
	return list, nil
}

func (s *service) CreateProfessor(ctx context.Context, req CreateProfessorRequest, pictures []asset.File) (*Professor, error) {
	req.normalize()

	plan := submission.Plan[Professor]{
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
		Build: func(refs []asset.Ref) (*Professor, error) {
			return &Professor{
				Name:              req.Name,
				Department:        req.Department,
				Email:             req.Email,
				Phone:             req.Phone,
				ProfilePictureURL: refs[0].URL,
				BitsProfileURL:    req.BitsProfileURL,
			}, nil
		},
		Persist: s.professors.Create,
	}
	if req.ProfilePictureURL != "" && len(pictures) == 0 {
		plan.Uploaded = []asset.Ref{{URL: req.ProfilePictureURL}}
	}

	return submission.Run(ctx, s.coordinator, plan)
}
