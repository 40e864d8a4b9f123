// Package idgen provides ID generation utilities for the application.
// It encapsulates the ID generation implementation, making it easy to change
// the underlying ID generation strategy in the future.
package idgen

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/rs/xid"
)

// NewID generates a new globally unique, sortable identifier.
// Returns a 20-character string using xid format.
func NewID() string {
	return xid.New().String()
}

// NewSectionID generates the stable identifier of a report section.
// Ids are never reused: xid embeds time, machine, pid and a counter.
func NewSectionID() string {
	return NewID()
}

// NewFormID generates the namespace identifier of a wizard draft.
func NewFormID() string {
	return NewID()
}

// IsValidID reports whether s is an id produced by NewID.
func IsValidID(s string) bool {
	_, err := xid.FromString(s)
	return err == nil
}

// NewRequestID generates a unique ID for request tracking.
func NewRequestID() string {
	return NewID()
}

// NewSecureSecret generates a cryptographically secure random string of specified length.
// Uses URL-safe base64 encoding. Useful for JWT and webhook secrets.
func NewSecureSecret(length int) string {
	byteLength := (length*3 + 3) / 4
	bytes := make([]byte, byteLength)

	if _, err := rand.Read(bytes); err != nil {
		return "please-generate-a-secure-random-secret"
	}

	encoded := base64.URLEncoding.EncodeToString(bytes)
	if len(encoded) > length {
		encoded = encoded[:length]
	}
	return encoded
}
