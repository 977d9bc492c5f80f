package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/microbes-potential/conatoc-net/internal/domain"
)

var (
	_ PaperRepository   = (*PostgresPaperRepo)(nil)
	_ DatasetRepository = (*PostgresDatasetRepo)(nil)
)

// PostgresPaperRepo implements PaperRepository on pgx. File contents
// live in the row; listings never select them.
type PostgresPaperRepo struct {
	db *pgxpool.Pool
}

func NewPostgresPaperRepo(pool *pgxpool.Pool) *PostgresPaperRepo {
	return &PostgresPaperRepo{db: pool}
}

func (r *PostgresPaperRepo) Create(ctx context.Context, paper domain.Paper) (domain.Paper, error) {
	const query = `INSERT INTO papers (id, title, link, tags, summary, uploader_id, file_name, file_bytes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		paper.ID,
		paper.Title,
		paper.Link,
		paper.Tags,
		paper.Summary,
		paper.UploaderID,
		paper.FileName,
		paper.FileBytes,
	).Scan(&paper.CreatedAt)
	if err != nil {
		return domain.Paper{}, fmt.Errorf("insert paper: %w", err)
	}
	return paper, nil
}

func (r *PostgresPaperRepo) List(ctx context.Context) ([]domain.Paper, error) {
	const query = `SELECT id, title, link, tags, summary, uploader_id, file_name, created_at
FROM papers ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	defer rows.Close()

	var papers []domain.Paper
	for rows.Next() {
		var p domain.Paper
		if err := rows.Scan(&p.ID, &p.Title, &p.Link, &p.Tags, &p.Summary, &p.UploaderID, &p.FileName, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan paper: %w", err)
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}

func (r *PostgresPaperRepo) GetFile(ctx context.Context, id int64) (domain.Paper, error) {
	const query = `SELECT id, title, link, tags, summary, uploader_id, file_name, file_bytes, created_at
FROM papers WHERE id = $1`

	var p domain.Paper
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Title, &p.Link, &p.Tags, &p.Summary, &p.UploaderID, &p.FileName, &p.FileBytes, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Paper{}, domain.ErrNotFound
		}
		return domain.Paper{}, fmt.Errorf("get paper: %w", err)
	}
	return p, nil
}

// PostgresDatasetRepo implements DatasetRepository on pgx.
type PostgresDatasetRepo struct {
	db *pgxpool.Pool
}

func NewPostgresDatasetRepo(pool *pgxpool.Pool) *PostgresDatasetRepo {
	return &PostgresDatasetRepo{db: pool}
}

func (r *PostgresDatasetRepo) Create(ctx context.Context, dataset domain.Dataset) (domain.Dataset, error) {
	const query = `INSERT INTO datasets (id, title, description, link, tags, visibility, uploader_id, file_name, file_bytes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		dataset.ID,
		dataset.Title,
		dataset.Description,
		dataset.Link,
		dataset.Tags,
		string(dataset.Visibility),
		dataset.UploaderID,
		dataset.FileName,
		dataset.FileBytes,
	).Scan(&dataset.CreatedAt)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("insert dataset: %w", err)
	}
	return dataset, nil
}

func (r *PostgresDatasetRepo) List(ctx context.Context) ([]domain.Dataset, error) {
	const query = `SELECT id, title, description, link, tags, visibility, uploader_id, file_name, created_at
FROM datasets ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var datasets []domain.Dataset
	for rows.Next() {
		d, err := scanDataset(rows, false)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

func (r *PostgresDatasetRepo) GetFile(ctx context.Context, id int64) (domain.Dataset, error) {
	const query = `SELECT id, title, description, link, tags, visibility, uploader_id, file_name, file_bytes, created_at
FROM datasets WHERE id = $1`

	d, err := scanDataset(r.db.QueryRow(ctx, query, id), true)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Dataset{}, domain.ErrNotFound
		}
		return domain.Dataset{}, err
	}
	return d, nil
}

func scanDataset(row pgx.Row, withFile bool) (domain.Dataset, error) {
	var (
		d          domain.Dataset
		visibility string
	)
	fields := []any{&d.ID, &d.Title, &d.Description, &d.Link, &d.Tags, &visibility, &d.UploaderID, &d.FileName}
	if withFile {
		fields = append(fields, &d.FileBytes)
	}
	fields = append(fields, &d.CreatedAt)

	if err := row.Scan(fields...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Dataset{}, err
		}
		return domain.Dataset{}, fmt.Errorf("scan dataset: %w", err)
	}
	parsed, err := domain.ParseVisibility(visibility)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("scan dataset: %w", err)
	}
	d.Visibility = parsed
	return d, nil
}
