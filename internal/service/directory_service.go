package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/repository"
)

// ErrDeactivateSelf rejects an admin trying to lock themselves out.
var ErrDeactivateSelf = errors.New("cannot deactivate own account")

// MemberProfile is the member-directory view of a user. No credential
// material ever appears here.
type MemberProfile struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Affiliation string `json:"affiliation,omitempty"`
	Role        string `json:"role"`
	Joined      string `json:"joined"`
}

// AdminUserRow extends the profile with the fields the admin console
// needs.
type AdminUserRow struct {
	MemberProfile
	Active bool `json:"active"`
}

// DirectoryService serves the member directory and the admin user
// console. There is no role-promotion operation: admins are fixed at
// bootstrap.
type DirectoryService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// NewDirectoryService wires dependencies.
func NewDirectoryService(users repository.UserRepository, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{users: users, logger: logger}
}

// ListMembers returns the active accounts visible to members.
func (s *DirectoryService) ListMembers(ctx context.Context) ([]MemberProfile, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]MemberProfile, 0, len(users))
	for _, user := range users {
		if !user.Active {
			continue
		}
		profiles = append(profiles, profileOf(user))
	}
	return profiles, nil
}

// ListAllUsers returns every account, active or not, for the admin
// console.
func (s *DirectoryService) ListAllUsers(ctx context.Context) ([]AdminUserRow, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]AdminUserRow, 0, len(users))
	for _, user := range users {
		rows = append(rows, AdminUserRow{MemberProfile: profileOf(user), Active: user.Active})
	}
	return rows, nil
}

// Deactivate disables an account so it can no longer log in. Existing
// sessions keep their role snapshot until they expire; admins cannot
// deactivate themselves.
func (s *DirectoryService) Deactivate(ctx context.Context, sess domain.Session, userID int64) error {
	if sess.UserID == userID {
		return ErrDeactivateSelf
	}
	if err := s.users.Deactivate(ctx, userID); err != nil {
		return err
	}
	s.log().Info("audit",
		zap.String("event", "user.deactivated"),
		zap.Int64("user_id", userID),
		zap.Int64("by", sess.UserID),
	)
	return nil
}

func profileOf(user domain.User) MemberProfile {
	return MemberProfile{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		Affiliation: user.Affiliation,
		Role:        string(user.Role),
		Joined:      user.CreatedAt.Format("2006-01-02"),
	}
}

func (s *DirectoryService) log() *zap.Logger {
	if s.logger != nil {
		return s.logger
	}
	return zap.L()
}
