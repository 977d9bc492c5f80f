package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/microbes-potential/conatoc-net/internal/domain"
)

// Compile-time interface assertions.
var (
	_ UserRepository   = (*PostgresUserRepo)(nil)
	_ InviteRepository = (*PostgresInviteRepo)(nil)
	_ NewsRepository   = (*PostgresNewsRepo)(nil)
	_ ChatRepository   = (*PostgresChatRepo)(nil)
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// PostgresUserRepo implements UserRepository on pgx. Email uniqueness
// is enforced by a unique index on lower(email); the check-and-insert
// therefore cannot race.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

const userColumns = `id, email, name, affiliation, password_hash, role, active, created_at, updated_at`

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return r.scanUser(r.db.QueryRow(ctx, query, domain.NormalizeEmail(email)))
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id int64) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	const query = `INSERT INTO users (id, email, name, affiliation, password_hash, role, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, query,
		user.ID,
		domain.NormalizeEmail(user.Email),
		user.Name,
		user.Affiliation,
		user.PasswordHash,
		string(user.Role),
		user.Active,
	)
	created, err := r.scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.ErrDuplicateEmail
		}
		return domain.User{}, err
	}
	return created, nil
}

func (r *PostgresUserRepo) List(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *PostgresUserRepo) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE users SET active = FALSE, updated_at = now() WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresUserRepo) scanUser(row pgx.Row) (domain.User, error) {
	var (
		user domain.User
		role string
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Affiliation,
		&user.PasswordHash,
		&role,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	parsed, err := domain.ParseRole(role)
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	user.Role = parsed
	return user, nil
}

// PostgresInviteRepo implements InviteRepository on pgx.
type PostgresInviteRepo struct {
	db *pgxpool.Pool
}

func NewPostgresInviteRepo(pool *pgxpool.Pool) *PostgresInviteRepo {
	return &PostgresInviteRepo{db: pool}
}

func (r *PostgresInviteRepo) Get(ctx context.Context, code string) (domain.InviteCode, error) {
	const query = `SELECT code, max_uses, uses_remaining, active, created_at FROM invite_codes WHERE code = $1`

	var invite domain.InviteCode
	err := r.db.QueryRow(ctx, query, code).Scan(
		&invite.Code,
		&invite.MaxUses,
		&invite.UsesRemaining,
		&invite.Active,
		&invite.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.InviteCode{}, domain.ErrNotFound
		}
		return domain.InviteCode{}, fmt.Errorf("get invite code: %w", err)
	}
	return invite, nil
}

// Ensure inserts the code or reactivates an existing row. A raised cap
// grants the difference as fresh uses; a lowered cap leaves the row
// untouched so already-granted uses are not clawed back.
func (r *PostgresInviteRepo) Ensure(ctx context.Context, code domain.InviteCode) error {
	const query = `INSERT INTO invite_codes (code, max_uses, uses_remaining, active)
VALUES ($1, $2, $3, TRUE)
ON CONFLICT (code) DO UPDATE SET
	active = TRUE,
	uses_remaining = invite_codes.uses_remaining + GREATEST(EXCLUDED.max_uses - invite_codes.max_uses, 0),
	max_uses = GREATEST(invite_codes.max_uses, EXCLUDED.max_uses)`

	if _, err := r.db.Exec(ctx, query, code.Code, code.MaxUses, code.UsesRemaining); err != nil {
		return fmt.Errorf("ensure invite code: %w", err)
	}
	return nil
}

// Consume spends one use in a single conditional UPDATE; the database
// serializes concurrent attempts so the last use has exactly one
// winner.
func (r *PostgresInviteRepo) Consume(ctx context.Context, code string) error {
	const query = `UPDATE invite_codes
SET uses_remaining = CASE WHEN max_uses > 0 THEN uses_remaining - 1 ELSE uses_remaining END
WHERE code = $1 AND active AND (max_uses = 0 OR uses_remaining > 0)`

	tag, err := r.db.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("consume invite code: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Distinguish an unknown/inactive code from a drained one.
	invite, err := r.Get(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrInvalidInviteCode
		}
		return err
	}
	if invite.Active && invite.Bounded() && invite.UsesRemaining == 0 {
		return domain.ErrInviteExhausted
	}
	return domain.ErrInvalidInviteCode
}

func (r *PostgresInviteRepo) Release(ctx context.Context, code string) error {
	const query = `UPDATE invite_codes
SET uses_remaining = uses_remaining + 1
WHERE code = $1 AND max_uses > 0 AND uses_remaining < max_uses`

	if _, err := r.db.Exec(ctx, query, code); err != nil {
		return fmt.Errorf("release invite code: %w", err)
	}
	return nil
}

// PostgresNewsRepo implements NewsRepository.
type PostgresNewsRepo struct {
	db *pgxpool.Pool
}

func NewPostgresNewsRepo(pool *pgxpool.Pool) *PostgresNewsRepo {
	return &PostgresNewsRepo{db: pool}
}

func (r *PostgresNewsRepo) Create(ctx context.Context, post domain.NewsPost) (domain.NewsPost, error) {
	const query = `INSERT INTO news_posts (id, title, body, link, author_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`

	if err := r.db.QueryRow(ctx, query, post.ID, post.Title, post.Body, post.Link, post.AuthorID).Scan(&post.CreatedAt); err != nil {
		return domain.NewsPost{}, fmt.Errorf("insert news post: %w", err)
	}
	return post, nil
}

func (r *PostgresNewsRepo) ListRecent(ctx context.Context, limit int) ([]domain.NewsPost, error) {
	const query = `SELECT id, title, body, link, author_id, created_at
FROM news_posts ORDER BY created_at DESC LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list news posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.NewsPost
	for rows.Next() {
		var post domain.NewsPost
		if err := rows.Scan(&post.ID, &post.Title, &post.Body, &post.Link, &post.AuthorID, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan news post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// PostgresChatRepo implements ChatRepository.
type PostgresChatRepo struct {
	db *pgxpool.Pool
}

func NewPostgresChatRepo(pool *pgxpool.Pool) *PostgresChatRepo {
	return &PostgresChatRepo{db: pool}
}

func (r *PostgresChatRepo) Create(ctx context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	const query = `INSERT INTO chat_messages (id, channel, message, author_id)
VALUES ($1, $2, $3, $4)
RETURNING created_at`

	if err := r.db.QueryRow(ctx, query, msg.ID, string(msg.Channel), msg.Message, msg.AuthorID).Scan(&msg.CreatedAt); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("insert chat message: %w", err)
	}
	return msg, nil
}

func (r *PostgresChatRepo) ListRecent(ctx context.Context, channel domain.Channel, limit int) ([]domain.ChatMessage, error) {
	const query = `SELECT id, channel, message, author_id, created_at FROM (
	SELECT id, channel, message, author_id, created_at
	FROM chat_messages WHERE channel = $1
	ORDER BY created_at DESC LIMIT $2
) recent ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, string(channel), limit)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.ChatMessage
	for rows.Next() {
		var (
			msg domain.ChatMessage
			ch  string
		)
		if err := rows.Scan(&msg.ID, &ch, &msg.Message, &msg.AuthorID, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		msg.Channel = domain.Channel(ch)
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}
