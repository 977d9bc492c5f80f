package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/repository"
)

// PaperItem is a library listing entry joined with its uploader's
// display name. File contents are never listed, only their name.
type PaperItem struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Link      string `json:"link,omitempty"`
	Tags      string `json:"tags,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Uploader  string `json:"uploader"`
	FileName  string `json:"file_name,omitempty"`
	CreatedAt string `json:"created_at"`
}

// DatasetItem is a dataset listing entry. Visibility is shown on the
// listing; it only restricts the download.
type DatasetItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
	Tags        string `json:"tags,omitempty"`
	Visibility  string `json:"visibility"`
	Uploader    string `json:"uploader"`
	FileName    string `json:"file_name,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// FileDownload is a file handed back to the HTTP layer.
type FileDownload struct {
	Name  string
	Bytes []byte
}

// SharePaperInput carries a paper submission. FileName and FileBytes
// are empty when only a link is shared.
type SharePaperInput struct {
	Title     string
	Link      string
	Tags      string
	Summary   string
	FileName  string
	FileBytes []byte
}

// ShareDatasetInput carries a dataset submission.
type ShareDatasetInput struct {
	Title       string
	Description string
	Link        string
	Tags        string
	Visibility  domain.Visibility
	FileName    string
	FileBytes   []byte
}

// LibraryService covers the shared papers and datasets. Member-level
// access is enforced at the router; dataset downloads carry an extra
// per-record visibility gate enforced here.
type LibraryService struct {
	papers   repository.PaperRepository
	datasets repository.DatasetRepository
	users    repository.UserRepository
	node     *snowflake.Node
	logger   *zap.Logger
}

// NewLibraryService wires dependencies.
func NewLibraryService(papers repository.PaperRepository, datasets repository.DatasetRepository, users repository.UserRepository, node *snowflake.Node, logger *zap.Logger) *LibraryService {
	return &LibraryService{papers: papers, datasets: datasets, users: users, node: node, logger: logger}
}

// SharePaper adds a paper to the library.
func (s *LibraryService) SharePaper(ctx context.Context, sess domain.Session, in SharePaperInput) (domain.Paper, error) {
	if !sess.Role.Satisfies(domain.RoleMember) {
		return domain.Paper{}, domain.ErrUnauthorized
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Paper{}, fmt.Errorf("title is required")
	}

	paper, err := s.papers.Create(ctx, domain.Paper{
		ID:         s.node.Generate().Int64(),
		Title:      title,
		Link:       strings.TrimSpace(in.Link),
		Tags:       strings.TrimSpace(in.Tags),
		Summary:    strings.TrimSpace(in.Summary),
		UploaderID: sess.UserID,
		FileName:   in.FileName,
		FileBytes:  in.FileBytes,
	})
	if err != nil {
		return domain.Paper{}, err
	}
	s.logger.Info("paper shared",
		zap.Int64("paper_id", paper.ID),
		zap.Int64("uploader_id", sess.UserID),
		zap.Bool("has_file", paper.HasFile()),
	)
	return paper, nil
}

// ListPapers returns all papers, newest first.
func (s *LibraryService) ListPapers(ctx context.Context) ([]PaperItem, error) {
	papers, err := s.papers.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]PaperItem, 0, len(papers))
	for _, p := range papers {
		items = append(items, PaperItem{
			ID:        p.ID,
			Title:     p.Title,
			Link:      p.Link,
			Tags:      p.Tags,
			Summary:   p.Summary,
			Uploader:  s.uploaderName(ctx, p.UploaderID),
			FileName:  p.FileName,
			CreatedAt: p.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return items, nil
}

// DownloadPaper returns a paper's uploaded file. Any member may
// download any paper.
func (s *LibraryService) DownloadPaper(ctx context.Context, sess domain.Session, id int64) (FileDownload, error) {
	if !sess.Role.Satisfies(domain.RoleMember) {
		return FileDownload{}, domain.ErrUnauthorized
	}
	paper, err := s.papers.GetFile(ctx, id)
	if err != nil {
		return FileDownload{}, err
	}
	if !paper.HasFile() {
		return FileDownload{}, domain.ErrNotFound
	}
	return FileDownload{Name: paper.FileName, Bytes: paper.FileBytes}, nil
}

// ShareDataset adds a dataset to the library.
func (s *LibraryService) ShareDataset(ctx context.Context, sess domain.Session, in ShareDatasetInput) (domain.Dataset, error) {
	if !sess.Role.Satisfies(domain.RoleMember) {
		return domain.Dataset{}, domain.ErrUnauthorized
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Dataset{}, fmt.Errorf("title is required")
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = domain.VisibilityMembers
	}

	dataset, err := s.datasets.Create(ctx, domain.Dataset{
		ID:          s.node.Generate().Int64(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Link:        strings.TrimSpace(in.Link),
		Tags:        strings.TrimSpace(in.Tags),
		Visibility:  visibility,
		UploaderID:  sess.UserID,
		FileName:    in.FileName,
		FileBytes:   in.FileBytes,
	})
	if err != nil {
		return domain.Dataset{}, err
	}
	s.logger.Info("dataset shared",
		zap.Int64("dataset_id", dataset.ID),
		zap.Int64("uploader_id", sess.UserID),
		zap.String("visibility", string(dataset.Visibility)),
	)
	return dataset, nil
}

// ListDatasets returns all datasets, newest first. Every member sees
// the full listing; visibility restricts downloads, not discovery.
func (s *LibraryService) ListDatasets(ctx context.Context) ([]DatasetItem, error) {
	datasets, err := s.datasets.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]DatasetItem, 0, len(datasets))
	for _, d := range datasets {
		items = append(items, DatasetItem{
			ID:          d.ID,
			Title:       d.Title,
			Description: d.Description,
			Link:        d.Link,
			Tags:        d.Tags,
			Visibility:  string(d.Visibility),
			Uploader:    s.uploaderName(ctx, d.UploaderID),
			FileName:    d.FileName,
			CreatedAt:   d.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return items, nil
}

// DownloadDataset returns a dataset's uploaded file after checking the
// record's visibility gate.
func (s *LibraryService) DownloadDataset(ctx context.Context, sess domain.Session, id int64) (FileDownload, error) {
	if !sess.Role.Satisfies(domain.RoleMember) {
		return FileDownload{}, domain.ErrUnauthorized
	}
	dataset, err := s.datasets.GetFile(ctx, id)
	if err != nil {
		return FileDownload{}, err
	}
	if !sess.Role.Satisfies(dataset.Visibility.RequiredRole()) {
		return FileDownload{}, domain.ErrUnauthorized
	}
	if !dataset.HasFile() {
		return FileDownload{}, domain.ErrNotFound
	}
	return FileDownload{Name: dataset.FileName, Bytes: dataset.FileBytes}, nil
}

func (s *LibraryService) uploaderName(ctx context.Context, userID int64) string {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "unknown"
	}
	return user.Name
}
