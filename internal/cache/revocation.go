package cache

import (
	"context"
	"time"
)

const revokedPrefix = "revoked:"

// Revocations records token ids that must no longer be accepted. Entries
// expire together with the token they block.
type Revocations struct {
	backend Backend
	now     func() time.Time
}

func NewRevocations(backend Backend, now func() time.Time) *Revocations {
	if now == nil {
		now = time.Now
	}
	return &Revocations{backend: backend, now: now}
}

func (r *Revocations) Revoke(ctx context.Context, id string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.backend.Set(ctx, revokedPrefix+id, []byte{1}, ttl)
}

func (r *Revocations) IsRevoked(ctx context.Context, id string) (bool, error) {
	_, ok, err := r.backend.Get(ctx, revokedPrefix+id)
	return ok, err
}
