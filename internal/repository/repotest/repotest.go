// Package repotest provides in-memory repository implementations for
// tests. They honor the same contracts as the Postgres implementations:
// case-insensitive duplicate rejection on user creation and a guarded
// decrement on invite consumption.
package repotest

import (
	"context"
	"sync"
	"time"

	"github.com/microbes-potential/conatoc-net/internal/domain"
	"github.com/microbes-potential/conatoc-net/internal/repository"
)

// UserRepo is an in-memory repository.UserRepository.
type UserRepo struct {
	mu    sync.Mutex
	users map[int64]domain.User
}

var _ repository.UserRepository = (*UserRepo)(nil)

// NewUserRepo constructs an empty user repository.
func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[int64]domain.User)}
}

func (r *UserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized := domain.NormalizeEmail(email)
	for _, u := range r.users {
		if domain.NormalizeEmail(u.Email) == normalized {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (r *UserRepo) GetByID(_ context.Context, id int64) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r *UserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized := domain.NormalizeEmail(user.Email)
	for _, existing := range r.users {
		if domain.NormalizeEmail(existing.Email) == normalized {
			return domain.User{}, domain.ErrDuplicateEmail
		}
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *UserRepo) List(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func (r *UserRepo) Deactivate(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Active = false
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

// InviteRepo is an in-memory repository.InviteRepository.
type InviteRepo struct {
	mu    sync.Mutex
	codes map[string]domain.InviteCode
}

var _ repository.InviteRepository = (*InviteRepo)(nil)

// NewInviteRepo constructs an empty invite ledger.
func NewInviteRepo() *InviteRepo {
	return &InviteRepo{codes: make(map[string]domain.InviteCode)}
}

func (r *InviteRepo) Get(_ context.Context, code string) (domain.InviteCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok {
		return domain.InviteCode{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *InviteRepo) Ensure(_ context.Context, code domain.InviteCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.codes[code.Code]; ok {
		existing.Active = true
		if code.MaxUses > existing.MaxUses {
			existing.UsesRemaining += code.MaxUses - existing.MaxUses
			existing.MaxUses = code.MaxUses
		}
		r.codes[code.Code] = existing
		return nil
	}
	code.Active = true
	code.CreatedAt = time.Now().UTC()
	r.codes[code.Code] = code
	return nil
}

func (r *InviteRepo) Consume(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok || !c.Active {
		return domain.ErrInvalidInviteCode
	}
	if c.Bounded() {
		if c.UsesRemaining <= 0 {
			return domain.ErrInviteExhausted
		}
		c.UsesRemaining--
		r.codes[code] = c
	}
	return nil
}

func (r *InviteRepo) Release(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[code]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Bounded() && c.UsesRemaining < c.MaxUses {
		c.UsesRemaining++
		r.codes[code] = c
	}
	return nil
}

// NewsRepo is an in-memory repository.NewsRepository. The zero value is
// ready to use.
type NewsRepo struct {
	mu    sync.Mutex
	posts []domain.NewsPost
}

var _ repository.NewsRepository = (*NewsRepo)(nil)

func (r *NewsRepo) Create(_ context.Context, post domain.NewsPost) (domain.NewsPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.CreatedAt = time.Now().UTC()
	r.posts = append(r.posts, post)
	return post, nil
}

func (r *NewsRepo) ListRecent(_ context.Context, limit int) ([]domain.NewsPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.NewsPost, 0, limit)
	for i := len(r.posts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.posts[i])
	}
	return out, nil
}

// PaperRepo is an in-memory repository.PaperRepository. The zero value
// is ready to use.
type PaperRepo struct {
	mu     sync.Mutex
	papers []domain.Paper
}

var _ repository.PaperRepository = (*PaperRepo)(nil)

func (r *PaperRepo) Create(_ context.Context, paper domain.Paper) (domain.Paper, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	paper.CreatedAt = time.Now().UTC()
	r.papers = append(r.papers, paper)
	return paper, nil
}

func (r *PaperRepo) List(_ context.Context) ([]domain.Paper, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Paper, 0, len(r.papers))
	for i := len(r.papers) - 1; i >= 0; i-- {
		p := r.papers[i]
		p.FileBytes = nil
		out = append(out, p)
	}
	return out, nil
}

func (r *PaperRepo) GetFile(_ context.Context, id int64) (domain.Paper, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.papers {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Paper{}, domain.ErrNotFound
}

// DatasetRepo is an in-memory repository.DatasetRepository. The zero
// value is ready to use.
type DatasetRepo struct {
	mu       sync.Mutex
	datasets []domain.Dataset
}

var _ repository.DatasetRepository = (*DatasetRepo)(nil)

func (r *DatasetRepo) Create(_ context.Context, dataset domain.Dataset) (domain.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dataset.CreatedAt = time.Now().UTC()
	r.datasets = append(r.datasets, dataset)
	return dataset, nil
}

func (r *DatasetRepo) List(_ context.Context) ([]domain.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Dataset, 0, len(r.datasets))
	for i := len(r.datasets) - 1; i >= 0; i-- {
		d := r.datasets[i]
		d.FileBytes = nil
		out = append(out, d)
	}
	return out, nil
}

func (r *DatasetRepo) GetFile(_ context.Context, id int64) (domain.Dataset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.datasets {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.Dataset{}, domain.ErrNotFound
}

// ChatRepo is an in-memory repository.ChatRepository. The zero value is
// ready to use.
type ChatRepo struct {
	mu   sync.Mutex
	msgs []domain.ChatMessage
}

var _ repository.ChatRepository = (*ChatRepo)(nil)

func (r *ChatRepo) Create(_ context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg.CreatedAt = time.Now().UTC()
	r.msgs = append(r.msgs, msg)
	return msg, nil
}

func (r *ChatRepo) ListRecent(_ context.Context, channel domain.Channel, limit int) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]domain.ChatMessage, 0, limit)
	for _, m := range r.msgs {
		if m.Channel == channel {
			matched = append(matched, m)
		}
	}
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}
