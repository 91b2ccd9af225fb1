package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/streamhive/content-core/pkg/contentcore"
)

// IdentityStore implements contentcore.IdentityStore by reading the
// users table maintained by the identity system.
type IdentityStore struct {
	db DBTX
}

// NewIdentityStore creates an identity store over a connection or pool.
func NewIdentityStore(db DBTX) *IdentityStore {
	return &IdentityStore{db: db}
}

func (s *IdentityStore) GetUser(ctx context.Context, id uuid.UUID) (*contentcore.User, error) {
	var u contentcore.User
	err := s.db.QueryRow(ctx,
		`SELECT id, name, role_name FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.RoleName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &contentcore.NotFoundError{Resource: "user"}
		}
		return nil, translateError("get user", err)
	}
	return &u, nil
}
