// Package identity provides the client for the hosted identity provider.
package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/stackie-hr/stackie-server/internal/domain"
)

var (
	// ErrNotConfigured is returned by every operation of a client that has
	// no provider credentials. Callers treat this as a supported mode, not
	// a failure.
	ErrNotConfigured = errors.New("identity provider is not configured")

	// ErrUserAlreadyExists is the named sign-up outcome for an email the
	// provider already knows. It is distinct from generic failure so the
	// caller can redirect to sign-in instead of showing a raw error.
	ErrUserAlreadyExists = errors.New("user already registered")

	// ErrInvalidCredentials is returned on a rejected password sign-in.
	ErrInvalidCredentials = errors.New("invalid login credentials")

	// ErrNoSession is returned by GetSession when nobody is signed in.
	ErrNoSession = errors.New("no active session")
)

// EventType identifies an auth state change notification.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Event is delivered to subscribers whenever the provider's auth state
// changes. Session is nil for EventSignedOut.
type Event struct {
	Type    EventType
	Session *domain.Session
}

// Callback receives auth state change events in delivery order.
type Callback func(Event)

// Unsubscribe detaches a previously registered callback.
type Unsubscribe func()

// Client is the interface to the identity provider. Implementations must be
// safe for concurrent use. The client is constructed explicitly and injected
// into the session controller; there is no package-level instance.
type Client interface {
	// IsConfigured reports whether the provider is reachable at all.
	// When false, all other operations return ErrNotConfigured.
	IsConfigured() bool

	// GetSession returns the current session, or ErrNoSession when nobody
	// is signed in.
	GetSession(ctx context.Context) (*domain.Session, error)

	// SignInWithPassword performs a password grant sign-in. A successful
	// call emits EventSignedIn to subscribers.
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)

	// SignUp registers a new identity. Returns ErrUserAlreadyExists for a
	// known email; no session is established in that case.
	SignUp(ctx context.Context, email, password string) (*domain.User, error)

	// SignOut revokes the current session and emits EventSignedOut.
	SignOut(ctx context.Context) error

	// OnAuthStateChange registers a callback for subsequent auth events.
	OnAuthStateChange(fn Callback) Unsubscribe
}

// subscribers is the shared callback registry used by client implementations.
type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]Callback
}

func (s *subscribers) add(fn Callback) Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]Callback)
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

// emit delivers an event to all registered callbacks. Delivery happens under
// the registry lock so events are observed in emission order.
func (s *subscribers) emit(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fn := range s.fns {
		fn(ev)
	}
}

// Disabled is the placeholder client injected when the provider is not
// configured. Every operation reports the unconfigured mode.
type Disabled struct {
	subs subscribers
}

// NewDisabled creates the placeholder client.
func NewDisabled() *Disabled {
	return &Disabled{}
}

// IsConfigured always returns false.
func (d *Disabled) IsConfigured() bool { return false }

// GetSession returns ErrNotConfigured.
func (d *Disabled) GetSession(_ context.Context) (*domain.Session, error) {
	return nil, ErrNotConfigured
}

// SignInWithPassword returns ErrNotConfigured.
func (d *Disabled) SignInWithPassword(_ context.Context, _, _ string) (*domain.Session, error) {
	return nil, ErrNotConfigured
}

// SignUp returns ErrNotConfigured.
func (d *Disabled) SignUp(_ context.Context, _, _ string) (*domain.User, error) {
	return nil, ErrNotConfigured
}

// SignOut returns ErrNotConfigured.
func (d *Disabled) SignOut(_ context.Context) error {
	return ErrNotConfigured
}

// OnAuthStateChange registers the callback; no events are ever emitted.
func (d *Disabled) OnAuthStateChange(fn Callback) Unsubscribe {
	return d.subs.add(fn)
}

var _ Client = (*Disabled)(nil)
