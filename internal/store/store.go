// Package store holds user accounts. Chat state (rooms, history,
// presence) is deliberately in-memory elsewhere; accounts are the only
// thing worth keeping across restarts, and even that is optional.
package store

import (
	"context"
	"errors"

	"termchat/internal/models"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CountUsers(ctx context.Context) (int, error)
	Close() error
}
