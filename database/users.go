package database

import (
	"context"
	"errors"
	"fmt"

	"csrdesk/model"
)

const UsersResource = "users"

// FindUser looks a user up by _id first, then by ReferenceID.
// Password fields are never returned.
func (s *Store) FindUser(ctx context.Context, id string) (model.Record, error) {
	user, err := s.Get(ctx, UsersResource, id)
	if errors.Is(err, ErrNotFound) {
		user, err = s.FindOne(ctx, UsersResource, map[string]string{"ReferenceID": id})
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find user %s: %w", id, err)
	}
	delete(user, "password")
	delete(user, "Password")
	return user, nil
}
