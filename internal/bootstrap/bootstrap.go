// Package bootstrap seeds the baseline accounts from configuration at
// process start. It is idempotent: detection is by unique email, so
// restarting with unchanged configuration performs no duplicate writes.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/microbes-potential/conatoc-net/internal/config"
	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/password"
	"github.com/microbes-potential/conatoc-net/internal/repository"
)

// EnsureAccounts registers the bootstrap routine on the fx lifecycle.
// A failure here is fatal: the process must not serve authenticated
// features without a login-capable admin account.
func EnsureAccounts(lc fx.Lifecycle, cfg config.Config, users repository.UserRepository, invites repository.InviteRepository, node *snowflake.Node, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return Run(ctx, cfg, users, invites, node, logger)
		},
	})
}

// Run performs the bootstrap: the admin account always, the shared
// member account and the invite code when configured.
func Run(ctx context.Context, cfg config.Config, users repository.UserRepository, invites repository.InviteRepository, node *snowflake.Node, logger *zap.Logger) error {
	if len(cfg.AdminPassword) < config.MinPasswordLength {
		logger.Warn("admin password is below the recommended minimum length; rotate it",
			zap.Int("min_length", config.MinPasswordLength),
		)
	}

	if err := ensureUser(ctx, users, node, logger, cfg.AdminEmail, cfg.AdminPassword, "Site Administrator", domain.RoleAdmin); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	if cfg.SharedLoginEnabled() {
		logger.Warn("shared member login is enabled; individual accountability is not available for this account",
			zap.String("email", domain.NormalizeEmail(cfg.SharedMemberEmail)),
		)
		if err := ensureUser(ctx, users, node, logger, cfg.SharedMemberEmail, cfg.SharedMemberPassword, "Shared Member", domain.RoleMember); err != nil {
			return fmt.Errorf("bootstrap shared member: %w", err)
		}
	}

	if cfg.RegistrationOpen() {
		invite := domain.InviteCode{
			Code:          cfg.InviteCode,
			MaxUses:       cfg.InviteMaxUses,
			UsesRemaining: cfg.InviteMaxUses,
		}
		if err := invites.Ensure(ctx, invite); err != nil {
			return fmt.Errorf("bootstrap invite code: %w", err)
		}
	} else {
		logger.Info("no invite code configured; registration is closed")
	}

	return nil
}

func ensureUser(ctx context.Context, users repository.UserRepository, node *snowflake.Node, logger *zap.Logger, email, rawPassword, name string, role domain.Role) error {
	normalized := domain.NormalizeEmail(email)

	if _, err := users.GetByEmail(ctx, normalized); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup %s: %w", normalized, err)
	}

	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	created, err := users.Create(ctx, domain.User{
		ID:           node.Generate().Int64(),
		Email:        normalized,
		Name:         name,
		PasswordHash: hashed,
		Role:         role,
		Active:       true,
	})
	if err != nil {
		// A concurrent bootstrap in another process won the insert.
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("create %s: %w", normalized, err)
	}

	logger.Info("bootstrap account created",
		zap.String("email", created.Email),
		zap.String("role", string(created.Role)),
		zap.Int64("user_id", created.ID),
	)
	return nil
}
