package service_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/repository/repotest"
	"github.com/microbes-potential/conatoc-net/internal/service"
)

func newLibraryFixture(t *testing.T) (*service.LibraryService, *repotest.UserRepo) {
	t.Helper()
	users := repotest.NewUserRepo()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := service.NewLibraryService(&repotest.PaperRepo{}, &repotest.DatasetRepo{}, users, node, zap.NewNop())
	return svc, users
}

func TestShareAndListPapers(t *testing.T) {
	ctx := context.Background()
	svc, users := newLibraryFixture(t)
	uploader := seedUser(t, users, 1, "member@conatoc.net", "GoodPassword", domain.RoleMember, true)

	_, err := svc.SharePaper(ctx, memberSession(uploader.ID, uploader.Role), service.SharePaperInput{
		Title: "Radio survey notes",
		Link:  "https://conatoc.net/papers/survey",
		Tags:  "radio, survey",
	})
	require.NoError(t, err)
	_, err = svc.SharePaper(ctx, memberSession(uploader.ID, uploader.Role), service.SharePaperInput{
		Title:     "Calibration procedure",
		Summary:   "Dish pointing calibration, step by step.",
		FileName:  "calibration.pdf",
		FileBytes: []byte("pdf-bytes"),
	})
	require.NoError(t, err)

	items, err := svc.ListPapers(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Newest first, uploader name joined in.
	require.Equal(t, "Calibration procedure", items[0].Title)
	require.Equal(t, "calibration.pdf", items[0].FileName)
	require.Equal(t, "Test User", items[0].Uploader)
}

func TestSharePaperRejectsGuestsAndBlanks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newLibraryFixture(t)

	_, err := svc.SharePaper(ctx, domain.AnonymousSession(), service.SharePaperInput{Title: "Title"})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.SharePaper(ctx, memberSession(1, domain.RoleMember), service.SharePaperInput{Title: "   "})
	require.Error(t, err)
}

func TestDownloadPaper(t *testing.T) {
	ctx := context.Background()
	svc, users := newLibraryFixture(t)
	uploader := seedUser(t, users, 1, "member@conatoc.net", "GoodPassword", domain.RoleMember, true)

	withFile, err := svc.SharePaper(ctx, memberSession(uploader.ID, uploader.Role), service.SharePaperInput{
		Title:     "Calibration procedure",
		FileName:  "calibration.pdf",
		FileBytes: []byte("pdf-bytes"),
	})
	require.NoError(t, err)
	linkOnly, err := svc.SharePaper(ctx, memberSession(uploader.ID, uploader.Role), service.SharePaperInput{
		Title: "Radio survey notes",
		Link:  "https://conatoc.net/papers/survey",
	})
	require.NoError(t, err)

	file, err := svc.DownloadPaper(ctx, memberSession(uploader.ID, uploader.Role), withFile.ID)
	require.NoError(t, err)
	require.Equal(t, "calibration.pdf", file.Name)
	require.Equal(t, []byte("pdf-bytes"), file.Bytes)

	// A link-only paper has no file to download.
	_, err = svc.DownloadPaper(ctx, memberSession(uploader.ID, uploader.Role), linkOnly.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.DownloadPaper(ctx, domain.AnonymousSession(), withFile.ID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDatasetVisibilityGatesDownloadNotListing(t *testing.T) {
	ctx := context.Background()
	svc, users := newLibraryFixture(t)
	member := seedUser(t, users, 1, "member@conatoc.net", "GoodPassword", domain.RoleMember, true)
	admin := seedUser(t, users, 2, "admin@conatoc.net", "GoodPassword", domain.RoleAdmin, true)

	restricted, err := svc.ShareDataset(ctx, memberSession(admin.ID, admin.Role), service.ShareDatasetInput{
		Title:      "Raw observation dumps",
		Visibility: domain.VisibilityAdmins,
		FileName:   "dumps.tar",
		FileBytes:  []byte("tar-bytes"),
	})
	require.NoError(t, err)
	open, err := svc.ShareDataset(ctx, memberSession(member.ID, member.Role), service.ShareDatasetInput{
		Title:     "Cleaned spectra",
		FileName:  "spectra.csv",
		FileBytes: []byte("csv-bytes"),
	})
	require.NoError(t, err)
	require.Equal(t, domain.VisibilityMembers, open.Visibility)

	// Every member sees both rows; visibility is just a column there.
	items, err := svc.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	_, err = svc.DownloadDataset(ctx, memberSession(member.ID, member.Role), restricted.ID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	file, err := svc.DownloadDataset(ctx, memberSession(admin.ID, admin.Role), restricted.ID)
	require.NoError(t, err)
	require.Equal(t, "dumps.tar", file.Name)

	file, err = svc.DownloadDataset(ctx, memberSession(member.ID, member.Role), open.ID)
	require.NoError(t, err)
	require.Equal(t, []byte("csv-bytes"), file.Bytes)
}

func TestDownloadDatasetUnknownID(t *testing.T) {
	svc, _ := newLibraryFixture(t)
	_, err := svc.DownloadDataset(context.Background(), memberSession(1, domain.RoleMember), 404)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
