// Package session stores live session records. A signed token alone is
// not enough to authenticate: the matching record must still exist in
// the store, which is what makes logout take effect immediately.
package session

import (
	"context"

	"github.com/microbes-potential/conatoc-net/internal/domain"
)

// Store persists session records keyed by session id. Records expire
// on their own at the session's absolute expiry; Delete is idempotent.
type Store interface {
	Save(ctx context.Context, sess domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, bool, error)
	Delete(ctx context.Context, id string) error
}
