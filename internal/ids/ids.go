// Package ids issues the opaque identities shared by ships, asteroids,
// torpedoes and network connections.
package ids

import "github.com/google/uuid"

// ObjectID identifies a world entity for its whole lifetime. IDs are never reused.
type ObjectID string

// ClientID identifies one network connection, independent of any ship.
type ClientID string

// NewObjectID returns a fresh, globally unique ObjectID.
func NewObjectID() ObjectID {
	return ObjectID(uuid.NewString())
}

// NewClientID returns a fresh, globally unique ClientID.
func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

func (id ObjectID) String() string { return string(id) }

func (id ClientID) String() string { return string(id) }
