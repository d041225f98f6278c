package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrRoomNotFound is returned when a join or send targets a room id
	// the directory does not know.
	ErrRoomNotFound = errors.New("room not found")

	// ErrNotMember is returned when a send or typing update targets a room
	// the session never joined.
	ErrNotMember = errors.New("not a member of this room")
)

// AuthError wraps a token verification failure during session
// establishment. The transport must be closed and no state mutated.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}
