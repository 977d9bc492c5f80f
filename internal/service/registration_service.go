package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/microbes-potential/conatoc-net/internal/config"
	"github.com/microbes-potential/conatoc-net/internal/domain"
	pw "github.com/microbes-potential/conatoc-net/internal/password"
	"github.com/microbes-potential/conatoc-net/internal/repository"
)

// RegisterRequest is the input to invite-gated registration.
type RegisterRequest struct {
	Email       string
	Password    string
	InviteCode  string
	Name        string
	Affiliation string
}

// RegistrationService is the only writer allowed to create member
// accounts outside bootstrap. Every new account costs one invite use.
type RegistrationService struct {
	users   repository.UserRepository
	invites repository.InviteRepository
	node    *snowflake.Node
	cfg     config.Config
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewRegistrationService wires dependencies.
func NewRegistrationService(users repository.UserRepository, invites repository.InviteRepository, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{
		users:   users,
		invites: invites,
		node:    node,
		cfg:     cfg,
		logger:  logger,
		tracer:  otel.Tracer("github.com/microbes-potential/conatoc-net/internal/service"),
	}
}

// Register validates the invite code and creates a member account.
// The invite use is consumed before the account is inserted so two
// registrations racing for the last use cannot both succeed; if the
// insert then loses an email race, the use is released again.
func (s *RegistrationService) Register(ctx context.Context, req RegisterRequest) (domain.User, error) {
	ctx, span := s.startSpan(ctx, "RegistrationService.Register")
	defer span.End()

	// With no code configured site-wide, registration is closed; the
	// shared login account is the only way in.
	if !s.cfg.RegistrationOpen() {
		return domain.User{}, domain.ErrInvalidInviteCode
	}

	email := domain.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, fmt.Errorf("invalid email address")
	}
	if len(req.Password) < config.MinPasswordLength {
		return domain.User{}, domain.ErrWeakPassword
	}

	// Pre-check the email so an obvious duplicate fails before any
	// invite use is spent. The insert below still guards the race.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return domain.User{}, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("lookup email: %w", err)
	}

	code := strings.TrimSpace(req.InviteCode)
	if err := s.invites.Consume(ctx, code); err != nil {
		return domain.User{}, err
	}

	hashed, err := pw.Hash(req.Password)
	if err != nil {
		s.refund(ctx, code)
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	created, err := s.users.Create(ctx, domain.User{
		ID:           s.node.Generate().Int64(),
		Email:        email,
		Name:         name,
		Affiliation:  strings.TrimSpace(req.Affiliation),
		PasswordHash: hashed,
		Role:         domain.RoleMember,
		Active:       true,
	})
	if err != nil {
		s.refund(ctx, code)
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return domain.User{}, domain.ErrDuplicateEmail
		}
		span.RecordError(err)
		return domain.User{}, fmt.Errorf("create member: %w", err)
	}

	s.audit("registration.success", "user_id", created.ID, "email", created.Email)
	return created, nil
}

func (s *RegistrationService) refund(ctx context.Context, code string) {
	if err := s.invites.Release(ctx, code); err != nil {
		s.log().Warn("release invite use failed", zap.Error(err))
	}
}

func (s *RegistrationService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *RegistrationService) audit(event string, attrs ...any) {
	fields := make([]zap.Field, 0, len(attrs)/2+1)
	fields = append(fields, zap.String("event", event))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	s.log().Info("audit", fields...)
}

func (s *RegistrationService) log() *zap.Logger {
	if s.logger != nil {
		return s.logger
	}
	return zap.L()
}
