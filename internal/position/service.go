package position

import (
	"context"
	"fmt"

	"membership-service/internal/asset"
	"membership-service/internal/store"
	"membership-service/internal/submission"
	"membership-service/internal/validation"
)

const PictureField = "profilePicture"

type Service interface {
	ListHolders(ctx context.Context) ([]Holder, error)
	CreateHolder(ctx context.Context, req CreateHolderRequest, pictures []asset.File) (*Holder, error)
}

type service struct {
	holders     store.Collection[Holder]
	coordinator *submission.Coordinator
}

func NewService(holders store.Collection[Holder], coordinator *submission.Coordinator) Service {
	return &service{
		holders:     holders,
		coordinator: coordinator,
	}
}

func (s *service) ListHolders(ctx context.Context) ([]Holder, error) {
	return s.holders.FindMany(ctx, nil, store.Desc("created_at"))
}

// CreateHolder assigns one position per email. The lookup before the insert
// only gives a clearer message; the unique index decides.
func (s *service) CreateHolder(ctx context.Context, req CreateHolderRequest, pictures []asset.File) (*Holder, error) {
	req.normalize()

	plan := submission.Plan[Holder]{
		Kind: Collection,
		Validate: func(ctx context.Context) error {
			if len(pictures) > 1 {
				return validation.Field(PictureField, "only one profile picture is allowed")
			}
			return validation.Struct(&req)
		},
		Files: pictures,
		Build: func(refs []asset.Ref) (*Holder, error) {
			holder := &Holder{
				Name:          req.Name,
				InstitutionID: req.InstitutionID,
				Email:         req.Email,
				Mobile:        req.Mobile,
				Position:      req.Position,
				Department:    req.Department,
				Description:   req.Description,
				Linkedin:      req.Linkedin,
			}
			if len(refs) > 0 {
				holder.ProfilePicture = refs[0].URL
			}
			return holder, nil
		},
		BeforePersist: func(ctx context.Context) error {
			existing, err := s.holders.FindOne(ctx, store.Filter{"email": req.Email})
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("position held by %s: %w", req.Email, store.ErrDuplicateKey)
			}
			return nil
		},
		Persist: s.holders.Create,
	}
	if req.ProfilePicture != "" && len(pictures) == 0 {
		plan.Uploaded = []asset.Ref{{URL: req.ProfilePicture}}
	}

	return submission.Run(ctx, s.coordinator, plan)
}
