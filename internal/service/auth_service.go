package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/microbes-potential/conatoc-net/internal/config"
	"github.com/microbes-potential/conatoc-net/internal/domain"
	pw "github.com/microbes-potential/conatoc-net/internal/password"
	"github.com/microbes-potential/conatoc-net/internal/repository"
	"github.com/microbes-potential/conatoc-net/internal/session"
	"github.com/microbes-potential/conatoc-net/internal/token"
)

// LoginResult carries the issued session and its signed token.
type LoginResult struct {
	Session domain.Session
	Token   string
	// ExpiresIn is the session lifetime in seconds.
	ExpiresIn int
}

// AuthService is the access controller: it authenticates credentials,
// resolves sessions from raw tokens, and answers authorization checks.
// It reads the credential store but never writes it.
type AuthService struct {
	users    repository.UserRepository
	sessions session.Store
	codec    *token.Codec
	cfg      config.Config
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, sessions session.Store, codec *token.Codec, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		codec:    codec,
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("github.com/microbes-potential/conatoc-net/internal/service"),
	}
}

// Login authenticates the credentials and issues a session carrying a
// snapshot of the user's role. Unknown emails, wrong passwords, and
// deactivated accounts all return the same domain.ErrAuthFailed so
// responses cannot enumerate members.
func (s *AuthService) Login(ctx context.Context, email, candidate string) (*LoginResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	normalized := domain.NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		span.RecordError(err)
		return nil, domain.ErrAuthFailed
	}

	valid, err := pw.Verify(candidate, user.PasswordHash)
	if err != nil || !valid {
		return nil, domain.ErrAuthFailed
	}
	if !user.Active {
		return nil, domain.ErrAuthFailed
	}

	now := time.Now().UTC()
	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, err
	}

	signed, err := s.codec.Sign(sess)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.audit("login.success", "user_id", user.ID, "role", string(user.Role))
	return &LoginResult{
		Session:   sess,
		Token:     signed,
		ExpiresIn: int(s.cfg.SessionTTL.Seconds()),
	}, nil
}

// Logout invalidates the session behind the raw token. It is
// idempotent: unknown, malformed, and already-revoked tokens all
// succeed silently.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	ctx, span := s.startSpan(ctx, "AuthService.Logout")
	defer span.End()

	sess, err := s.codec.Parse(rawToken)
	if err != nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		span.RecordError(err)
		return err
	}
	s.audit("logout", "user_id", sess.UserID)
	return nil
}

// CurrentSession resolves a raw token into a session, falling back to
// the anonymous guest session for missing, malformed, expired, or
// revoked tokens. The store record is authoritative: a validly signed
// token whose record is gone has been logged out.
func (s *AuthService) CurrentSession(ctx context.Context, rawToken string) (domain.Session, error) {
	if rawToken == "" {
		return domain.AnonymousSession(), nil
	}

	claimed, err := s.codec.Parse(rawToken)
	if err != nil {
		return domain.AnonymousSession(), nil
	}

	stored, ok, err := s.sessions.Get(ctx, claimed.ID)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok || stored.Expired(time.Now()) {
		return domain.AnonymousSession(), nil
	}
	return stored, nil
}

// Authorize checks the session's role snapshot against the required
// role: admin satisfies everything, member satisfies guest and member,
// guest satisfies only guest.
func (s *AuthService) Authorize(sess domain.Session, required domain.Role) error {
	if sess.Expired(time.Now()) {
		return domain.ErrSessionExpired
	}
	if !sess.Role.Satisfies(required) {
		return domain.ErrUnauthorized
	}
	return nil
}

// GetUser loads the profile behind an authenticated session.
func (s *AuthService) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
	logger := s.logger
	if logger == nil {
		logger = zap.L()
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}
