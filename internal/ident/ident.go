// Package ident generates opaque identifiers for tours, steps, and annotations.
package ident

import "github.com/google/uuid"

// NewID returns a fresh collision-resistant identifier. It never fails
// and the result is safe to use as a map key.
func NewID() string {
	return uuid.NewString()
}
