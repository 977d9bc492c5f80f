package repository

import (
	"context"

	"github.com/microbes-potential/conatoc-net/internal/domain"
)

// UserRepository is the credential store. Create is the single write
// path for new accounts and must reject case-insensitive email
// collisions atomically with domain.ErrDuplicateEmail.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Deactivate(ctx context.Context, id int64) error
}

// InviteRepository is the invite ledger. Consume must be a single
// atomic decrement-if-positive: two registrations racing for the last
// use of a bounded code get exactly one winner.
type InviteRepository interface {
	Get(ctx context.Context, code string) (domain.InviteCode, error)
	// Ensure creates the configured code if missing and reactivates it
	// if present. Remaining uses are never reset by a restart; raising
	// the configured cap grants the difference as new uses, lowering it
	// changes nothing.
	Ensure(ctx context.Context, code domain.InviteCode) error
	Consume(ctx context.Context, code string) error
	// Release returns one use to a bounded code. It compensates a
	// registration that consumed a use and then failed to create the
	// account.
	Release(ctx context.Context, code string) error
}

// NewsRepository stores community feed posts.
type NewsRepository interface {
	Create(ctx context.Context, post domain.NewsPost) (domain.NewsPost, error)
	ListRecent(ctx context.Context, limit int) ([]domain.NewsPost, error)
}

// PaperRepository stores shared papers. List omits file contents;
// GetFile loads the full record for a download.
type PaperRepository interface {
	Create(ctx context.Context, paper domain.Paper) (domain.Paper, error)
	List(ctx context.Context) ([]domain.Paper, error)
	GetFile(ctx context.Context, id int64) (domain.Paper, error)
}

// DatasetRepository stores shared datasets. List omits file contents;
// GetFile loads the full record for a download.
type DatasetRepository interface {
	Create(ctx context.Context, dataset domain.Dataset) (domain.Dataset, error)
	List(ctx context.Context) ([]domain.Dataset, error)
	GetFile(ctx context.Context, id int64) (domain.Dataset, error)
}

// ChatRepository stores channel messages.
type ChatRepository interface {
	Create(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error)
	// ListRecent returns up to limit of the newest messages in the
	// channel, oldest first.
	ListRecent(ctx context.Context, channel domain.Channel, limit int) ([]domain.ChatMessage, error)
}
