package chat

import (
	"context"
)

// IdentityDirectory resolves opaque user identifiers. Identity data is owned
// by an external service; the chat core only asks whether an id is valid
// before binding it to a room.
type IdentityDirectory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// openDirectory accepts any non-empty identifier. The transport layer has
// already authenticated the caller, so by default the core takes ids at face
// value.
type openDirectory struct{}

func (openDirectory) Exists(_ context.Context, userID string) (bool, error) {
	return userID != "", nil
}

// DefaultDirectory is used when a service is constructed with a nil
// directory.
var DefaultDirectory IdentityDirectory = openDirectory{}
