package store_test

import (
	"context"
	"testing"
	"time"

	"termchat/internal/models"
	"termchat/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(id, email string) *models.User {
	return &models.User{
		ID:           id,
		Email:        email,
		DisplayName:  "Test User",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("u-1", "a@example.com")))

	byEmail, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", byEmail.ID)

	byID, err := s.GetUserByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", byID.Email)

	count, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStoreUnknownUser(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = s.GetUserByID(ctx, "u-missing")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestMemoryStoreDuplicateEmail(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("u-1", "a@example.com")))
	err := s.CreateUser(ctx, testUser("u-2", "a@example.com"))
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)

	count, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, testUser("u-1", "a@example.com")))

	first, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	first.DisplayName = "mutated"

	second, err := s.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Test User", second.DisplayName)
}
