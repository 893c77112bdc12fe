package users

import (
	"context"
	"errors"
	"strings"
)

const RoleAdmin = "admin"

type Service struct {
	Repo Repo
	// AdminEmails are promoted to admin on sign-in.
	AdminEmails []string
}

func NewService(repo Repo, adminEmails []string) *Service {
	return &Service{Repo: repo, AdminEmails: adminEmails}
}

// UpsertFromAuth persists the identity from OAuth and returns the stored user,
// including the role that ownership and quota decisions are made with.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return User{}, errors.New("user id and email are required")
	}
	user.Role = ""
	stored, err := s.Repo.Upsert(ctx, user)
	if err != nil {
		return User{}, err
	}
	if stored.Role != RoleAdmin && s.isAdminEmail(stored.Email) {
		if err := s.Repo.SetRole(ctx, stored.ID, RoleAdmin); err != nil {
			return User{}, err
		}
		stored.Role = RoleAdmin
	}
	return stored, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

func (s *Service) isAdminEmail(email string) bool {
	for _, admin := range s.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), email) {
			return true
		}
	}
	return false
}
