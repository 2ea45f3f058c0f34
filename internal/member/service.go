package member

import (
	"context"
	"fmt"
	"time"

	"membership-service/internal/asset"
	"membership-service/internal/notification"
	"membership-service/internal/store"
	"membership-service/internal/submission"
	"membership-service/internal/validation"
)

const PictureField = "profilePicture"

var (
	ErrEmailRegistered         = fmt.Errorf("email already registered: %w", store.ErrDuplicateKey)
	ErrInstitutionIDRegistered = fmt.Errorf("bits id already registered: %w", store.ErrDuplicateKey)
)

type Service interface {
	Register(ctx context.Context, req RegisterRequest, pictures []asset.File) (*Member, error)
	ListMembers(ctx context.Context, approved *bool) ([]Member, error)
	ListPending(ctx context.Context) ([]Member, error)
	Approve(ctx context.Context, email string) (*Member, error)
	DeleteMember(ctx context.Context, email string) error
	ExportRoster(ctx context.Context) ([]byte, error)
}

type service struct {
	members     store.Collection[Member]
	coordinator *submission.Coordinator
	cleaner     *asset.Cleaner
	notifier    *notification.Notifier
}

func NewService(
	members store.Collection[Member],
	coordinator *submission.Coordinator,
	cleaner *asset.Cleaner,
	notifier *notification.Notifier,
) Service {
	return &service{
		members:     members,
		coordinator: coordinator,
		cleaner:     cleaner,
		notifier:    notifier,
	}
}

// Register stores a new, unapproved member. Existing email and BITS id are
// looked up for a precise message; the unique indexes remain authoritative
// when two registrations race.
func (s *service) Register(ctx context.Context, req RegisterRequest, pictures []asset.File) (*Member, error) {
	req.normalize()

	var dob time.Time
	plan := submission.Plan[Member]{
		Kind: Collection,
		Validate: func(ctx context.Context) error {
			if len(pictures) > 1 {
				return validation.Field(PictureField, "only one profile picture is allowed")
			}
			if err := validation.Struct(&req); err != nil {
				return err
			}
			var err error
			dob, err = validation.ParseDate("dateOfBirth", req.DateOfBirth)
			return err
		},
		Files: pictures,
		Build: func(refs []asset.Ref) (*Member, error) {
			m := &Member{
				Name:          req.Name,
				InstitutionID: req.InstitutionID,
				DateOfBirth:   dob,
				Mobile:        req.Mobile,
				Email:         req.Email,
				Hostel:        req.Hostel,
				RoomNo:        req.RoomNo,
				HomeAddress:   req.HomeAddress,
				Department:    req.Department,
				Clubs:         req.Clubs,
			}
			if len(refs) > 0 {
				m.ProfilePicture = refs[0].URL
			}
			return m, nil
		},
		BeforePersist: func(ctx context.Context) error {
			return s.checkAvailable(ctx, req.Email, req.InstitutionID)
		},
		Persist: s.members.Create,
	}
	if req.ProfilePicture != "" && len(pictures) == 0 {
		plan.Uploaded = []asset.Ref{{URL: req.ProfilePicture}}
	}

	created, err := submission.Run(ctx, s.coordinator, plan)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.MemberRegistered, created)
	return created, nil
}

func (s *service) checkAvailable(ctx context.Context, email, institutionID string) error {
	existing, err := s.members.FindOne(ctx, store.Filter{"email": email})
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailRegistered
	}

	existing, err = s.members.FindOne(ctx, store.Filter{"bits_id": institutionID})
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrInstitutionIDRegistered
	}
	return nil
}

func (s *service) ListMembers(ctx context.Context, approved *bool) ([]Member, error) {
	filter := store.Filter{}
	if approved != nil {
		filter["approved"] = *approved
	}
	return s.members.FindMany(ctx, filter, store.Desc("created_at"))
}

func (s *service) ListPending(ctx context.Context) ([]Member, error) {
	approved := false
	return s.ListMembers(ctx, &approved)
}

func (s *service) Approve(ctx context.Context, email string) (*Member, error) {
	updated, err := s.members.UpdateOne(ctx, store.Filter{"email": email}, store.Patch{"approved": true})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.MemberApproved, updated)
	return updated, nil
}

// DeleteMember removes the member and, best-effort, the profile picture.
func (s *service) DeleteMember(ctx context.Context, email string) error {
	existing, err := s.members.FindOne(ctx, store.Filter{"email": email})
	if err != nil {
		return err
	}
	if existing == nil {
		return store.ErrNotFound
	}

	if err := s.members.DeleteOne(ctx, store.Filter{"id": existing.ID}); err != nil {
		return err
	}

	if existing.ProfilePicture != "" {
		s.cleaner.DeleteByURL(ctx, existing.ProfilePicture)
	}

	s.notify(ctx, notification.MemberDeleted, existing)
	return nil
}

func (s *service) notify(ctx context.Context, kind notification.Type, m *Member) {
	s.notifier.Notify(ctx, notification.Notice{
		Type:    kind,
		Email:   m.Email,
		Subject: m.ID,
		Data: map[string]string{
			"name":   m.Name,
			"bitsId": m.InstitutionID,
		},
	})
}
