package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/repository/repotest"
	"github.com/microbes-potential/conatoc-net/internal/service"
)

func TestListMembersSkipsDeactivated(t *testing.T) {
	ctx := context.Background()
	users := repotest.NewUserRepo()
	svc := service.NewDirectoryService(users, zap.NewNop())

	seedUser(t, users, 1, "active@conatoc.net", "GoodPassword", domain.RoleMember, true)
	seedUser(t, users, 2, "gone@conatoc.net", "GoodPassword", domain.RoleMember, false)

	members, err := svc.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, "active@conatoc.net", members[0].Email)

	rows, err := svc.ListAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestDeactivate(t *testing.T) {
	ctx := context.Background()
	users := repotest.NewUserRepo()
	svc := service.NewDirectoryService(users, zap.NewNop())

	admin := seedUser(t, users, 1, "admin@conatoc.net", "GoodPassword", domain.RoleAdmin, true)
	member := seedUser(t, users, 2, "member@conatoc.net", "GoodPassword", domain.RoleMember, true)
	adminSess := memberSession(admin.ID, admin.Role)

	require.NoError(t, svc.Deactivate(ctx, adminSess, member.ID))
	got, err := users.GetByID(ctx, member.ID)
	require.NoError(t, err)
	require.False(t, got.Active)

	// Admins cannot lock themselves out.
	require.ErrorIs(t, svc.Deactivate(ctx, adminSess, admin.ID), service.ErrDeactivateSelf)

	require.ErrorIs(t, svc.Deactivate(ctx, adminSess, 999), domain.ErrNotFound)
}
