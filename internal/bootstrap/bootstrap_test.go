package bootstrap_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/microbes-potential/conatoc-net/internal/bootstrap"
	"github.com/microbes-potential/conatoc-net/internal/config"
	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/password"
	"github.com/microbes-potential/conatoc-net/internal/repository/repotest"
)

func newNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return node
}

func baseConfig() config.Config {
	return config.Config{
		AdminEmail:    "Admin@Conatoc.NET",
		AdminPassword: "StrongAdminPass",
		SessionTTL:    time.Hour,
	}
}

func TestRunCreatesAdmin(t *testing.T) {
	ctx := context.Background()
	users := repotest.NewUserRepo()

	require.NoError(t, bootstrap.Run(ctx, baseConfig(), users, repotest.NewInviteRepo(), newNode(t), zap.NewNop()))

	admin, err := users.GetByEmail(ctx, "admin@conatoc.net")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Role)
	require.True(t, admin.Active)

	ok, err := password.Verify("StrongAdminPass", admin.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRunDefaultCredentials(t *testing.T) {
	ctx := context.Background()
	users := repotest.NewUserRepo()
	cfg := config.Config{
		AdminEmail:    config.DefaultAdminEmail,
		AdminPassword: config.DefaultAdminPassword,
		SessionTTL:    time.Hour,
	}

	require.NoError(t, bootstrap.Run(ctx, cfg, users, repotest.NewInviteRepo(), newNode(t), zap.NewNop()))

	admin, err := users.GetByEmail(ctx, "admin@conatoc.net")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Role)

	ok, err := password.Verify("ChangeMeNow!", admin.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = password.Verify("wrong", admin.PasswordHash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	users := repotest.NewUserRepo()
	invites := repotest.NewInviteRepo()
	cfg := baseConfig()
	cfg.InviteCode = "welcome"
	cfg.InviteMaxUses = 3

	require.NoError(t, bootstrap.Run(ctx, cfg, users, invites, newNode(t), zap.NewNop()))

	// Spend a use between restarts; the second run must not reset it.
	require.NoError(t, invites.Consume(ctx, "welcome"))

	require.NoError(t, bootstrap.Run(ctx, cfg, users, invites, newNode(t), zap.NewNop()))

	all, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	code, err := invites.Get(ctx, "welcome")
	require.NoError(t, err)
	require.Equal(t, 2, code.UsesRemaining)
	require.True(t, code.Active)
}

func TestRunRaisedInviteCap(t *testing.T) {
	ctx := context.Background()
	users := repotest.NewUserRepo()
	invites := repotest.NewInviteRepo()
	cfg := baseConfig()
	cfg.InviteCode = "welcome"
	cfg.InviteMaxUses = 1

	require.NoError(t, bootstrap.Run(ctx, cfg, users, invites, newNode(t), zap.NewNop()))
	require.NoError(t, invites.Consume(ctx, "welcome"))
	require.ErrorIs(t, invites.Consume(ctx, "welcome"), domain.ErrInviteExhausted)

	// Restarting with a raised cap grants the difference, so a drained
	// code becomes usable again.
	cfg.InviteMaxUses = 3
	require.NoError(t, bootstrap.Run(ctx, cfg, users, invites, newNode(t), zap.NewNop()))

	code, err := invites.Get(ctx, "welcome")
	require.NoError(t, err)
	require.Equal(t, 3, code.MaxUses)
	require.Equal(t, 2, code.UsesRemaining)

	// Restarting with a lowered cap changes nothing.
	cfg.InviteMaxUses = 1
	require.NoError(t, bootstrap.Run(ctx, cfg, users, invites, newNode(t), zap.NewNop()))

	code, err = invites.Get(ctx, "welcome")
	require.NoError(t, err)
	require.Equal(t, 3, code.MaxUses)
	require.Equal(t, 2, code.UsesRemaining)
}

func TestRunSharedMember(t *testing.T) {
	ctx := context.Background()
	users := repotest.NewUserRepo()
	cfg := baseConfig()
	cfg.SharedMemberEmail = "shared@conatoc.net"
	cfg.SharedMemberPassword = "SharedSecret"

	require.NoError(t, bootstrap.Run(ctx, cfg, users, repotest.NewInviteRepo(), newNode(t), zap.NewNop()))

	shared, err := users.GetByEmail(ctx, "shared@conatoc.net")
	require.NoError(t, err)
	require.Equal(t, domain.RoleMember, shared.Role)
}

func TestRunWithoutInviteCodeSkipsLedger(t *testing.T) {
	ctx := context.Background()
	invites := repotest.NewInviteRepo()

	require.NoError(t, bootstrap.Run(ctx, baseConfig(), repotest.NewUserRepo(), invites, newNode(t), zap.NewNop()))

	_, err := invites.Get(ctx, "welcome")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunProceedsWithWeakAdminPassword(t *testing.T) {
	ctx := context.Background()
	users := repotest.NewUserRepo()
	cfg := baseConfig()
	cfg.AdminPassword = "short"

	// A weak bootstrap password logs a warning but must not block
	// startup; otherwise the default configuration could never boot.
	require.NoError(t, bootstrap.Run(ctx, cfg, users, repotest.NewInviteRepo(), newNode(t), zap.NewNop()))

	admin, err := users.GetByEmail(ctx, "admin@conatoc.net")
	require.NoError(t, err)
	ok, err := password.Verify("short", admin.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRunExistingAdminKeepsPassword(t *testing.T) {
	ctx := context.Background()
	users := repotest.NewUserRepo()
	cfg := baseConfig()

	require.NoError(t, bootstrap.Run(ctx, cfg, users, repotest.NewInviteRepo(), newNode(t), zap.NewNop()))
	before, err := users.GetByEmail(ctx, "admin@conatoc.net")
	require.NoError(t, err)

	// A changed env password does not overwrite an existing account.
	cfg.AdminPassword = "DifferentPass"
	require.NoError(t, bootstrap.Run(ctx, cfg, users, repotest.NewInviteRepo(), newNode(t), zap.NewNop()))

	after, err := users.GetByEmail(ctx, "admin@conatoc.net")
	require.NoError(t, err)
	require.Equal(t, before.PasswordHash, after.PasswordHash)
}
