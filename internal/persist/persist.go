// Package persist implements the tour persistence side-channel: each
// backend stores the full tour entity graph as a plain JSON document
// keyed by tour id. Backends are written to after the in-memory store
// has committed a mutation and read once at startup to hydrate it.
package persist

import "github.com/holmsten/stepwise/internal/models"

// Persister is the persistence backend contract. It extends the
// store's write-side Sink with bulk load for startup hydration.
// Consumers should depend on this interface rather than a concrete
// backend so tests can swap in fakes.
type Persister interface {
	SaveTour(t models.Tour) error
	DeleteTour(id string) error
	LoadAll() ([]models.Tour, error)
	Close() error
}
