// Package source resolves identifiers into playable tracks.
package source

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/llehouerou/wavefeed/internal/track"
)

var (
	// ErrNotRegistered is returned when no manager claims an identifier.
	ErrNotRegistered = errors.New("source: no source manager for identifier")
	// ErrConstruction wraps the failure of a manager that claimed an
	// identifier.
	ErrConstruction = errors.New("source: could not construct track")
)

// Manager turns identifiers it recognizes into track descriptors.
//
// Load returns claimed=false for identifiers that belong to another
// manager. Once claimed, an error means the track cannot be played.
type Manager interface {
	Name() string
	Load(identifier string) (desc track.Descriptor, claimed bool, err error)
}

// Registry asks its managers in order; the first claim wins.
type Registry struct {
	mu       sync.RWMutex
	managers []Manager
}

// NewRegistry creates a registry with managers in priority order.
func NewRegistry(managers ...Manager) *Registry {
	return &Registry{managers: managers}
}

// Register appends a manager with the lowest priority.
func (r *Registry) Register(m Manager) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.managers = append(r.managers, m)
}

// Resolve returns the descriptor of the first manager claiming identifier.
func (r *Registry) Resolve(identifier string) (track.Descriptor, error) {
	r.mu.RLock()
	managers := r.managers
	r.mu.RUnlock()

	for _, m := range managers {
		desc, claimed, err := m.Load(identifier)
		if !claimed {
			continue
		}
		if err != nil {
			slog.Debug("source: load failed",
				"manager", m.Name(),
				"identifier", identifier,
				"error", err,
			)
			return track.Descriptor{}, fmt.Errorf("%w: %s %q: %w", ErrConstruction, m.Name(), identifier, err)
		}
		if desc.Info.Identifier == "" {
			desc.Info.Identifier = identifier
		}
		return desc, nil
	}
	return track.Descriptor{}, fmt.Errorf("%w: %q", ErrNotRegistered, identifier)
}

// Factory returns a track.Factory building executors for resolved
// identifiers. Position, marker and user data come from the request.
func (r *Registry) Factory() track.Factory {
	return func(req track.Request, opts track.Options) (*track.Executor, error) {
		desc, err := r.Resolve(req.Identifier)
		if err != nil {
			return nil, err
		}
		desc.InitialPosition = max(req.Position, 0)
		desc.InitialMarker = req.Marker
		desc.UserData = req.UserData
		return track.NewExecutor(desc, opts), nil
	}
}
