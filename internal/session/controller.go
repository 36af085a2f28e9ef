// Package session owns the lifecycle of the process's authentication state.
//
// The controller produces, exactly once per process lifetime (until explicit
// sign-in/out), a stable answer to "who, if anyone, is signed in" while
// guaranteeing dependents are never blocked forever: every failure mode of
// the bootstrap degrades to a working anonymous state.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/stackie-hr/stackie-server/internal/domain"
	"github.com/stackie-hr/stackie-server/internal/identity"
)

// Phase is the session lifecycle phase. Transitions only move forward except
// for the ready-authenticated <-> ready-anonymous flips driven by sign-in and
// sign-out events; uninitialized and initializing are never re-entered.
type Phase string

const (
	PhaseUninitialized      Phase = "uninitialized"
	PhaseInitializing       Phase = "initializing"
	PhaseReadyAuthenticated Phase = "ready_authenticated"
	PhaseReadyAnonymous     Phase = "ready_anonymous"
)

// Ready returns true once the phase machine has resolved. Dependents treat
// any ready phase as "stop showing a loading indicator".
func (p Phase) Ready() bool {
	return p == PhaseReadyAuthenticated || p == PhaseReadyAnonymous
}

// Snapshot is an immutable view of the controller state.
type Snapshot struct {
	Phase   Phase           `json:"phase"`
	User    *domain.User    `json:"user,omitempty"`
	Profile *domain.Profile `json:"profile,omitempty"`
}

// SignUpStatus is the named outcome of a sign-up attempt.
type SignUpStatus string

const (
	SignUpOK                SignUpStatus = "ok"
	SignUpUserAlreadyExists SignUpStatus = "user_already_exists"
)

// SignUpResult reports a sign-up outcome. An already-registered email is a
// result, not an error, so callers can redirect to sign-in.
type SignUpResult struct {
	Status SignUpStatus `json:"status"`
	User   *domain.User `json:"user,omitempty"`
}

// ProfileSource looks up the profile owned by an identity. A nil profile
// with a nil error means the profile does not exist yet.
type ProfileSource interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
}

// eventBuffer bounds the auth event queue between the provider callback and
// the controller's event loop.
const eventBuffer = 16

// Controller drives the phase machine. All session state is mutated only by
// the controller itself: direct operations (SignIn/SignOut) pass through to
// the provider and the subsequent auth event is the sole phase mutator,
// which keeps the direct call's response and the provider's notification
// from racing.
type Controller struct {
	idp      identity.Client
	profiles ProfileSource
	watchdog time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	phase       Phase
	user        *domain.User
	profile     *domain.Profile
	gen         uint64 // bumped per auth event; guards stale profile writes
	closed      bool
	readyClosed bool
	subscribers map[int]chan Snapshot
	nextSubID   int

	ready         chan struct{}
	stop          chan struct{}
	events        chan identity.Event
	watchdogTimer *time.Timer
	unsubscribe   identity.Unsubscribe
}

// New creates a controller in the uninitialized phase. The identity client
// and profile source are injected; watchdog bounds the bootstrap.
func New(idp identity.Client, profiles ProfileSource, watchdog time.Duration, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if watchdog <= 0 {
		watchdog = 3 * time.Second
	}
	return &Controller{
		idp:         idp,
		profiles:    profiles,
		watchdog:    watchdog,
		logger:      logger,
		phase:       PhaseUninitialized,
		subscribers: make(map[int]chan Snapshot),
		ready:       make(chan struct{}),
		stop:        make(chan struct{}),
		events:      make(chan identity.Event, eventBuffer),
	}
}

// Initialize starts the bootstrap. It is idempotent: calling it after the
// phase machine has left uninitialized is a no-op. Initialization cannot
// fail; every error path resolves to ready-anonymous.
func (c *Controller) Initialize(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.phase != PhaseUninitialized {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseInitializing
	c.mu.Unlock()
	c.notify()

	// Subscribe before the session lookup so no event can slip between
	// resolution and subscription.
	unsubscribe := c.idp.OnAuthStateChange(func(ev identity.Event) {
		select {
		case c.events <- ev:
		case <-c.stop:
		}
	})
	c.mu.Lock()
	closed := c.closed
	if !closed {
		c.unsubscribe = unsubscribe
	}
	c.mu.Unlock()
	if closed {
		// Close won the race; it never saw this subscription.
		unsubscribe()
		return
	}
	go c.eventLoop()

	if !c.idp.IsConfigured() {
		// Configuration-optional mode: terminal, non-error.
		c.resolveInitial(PhaseReadyAnonymous, nil, nil)
		return
	}

	c.mu.Lock()
	c.watchdogTimer = time.AfterFunc(c.watchdog, func() {
		if c.resolveInitial(PhaseReadyAnonymous, nil, nil) {
			c.logger.Warn("session bootstrap watchdog fired, proceeding anonymous",
				"watchdog", c.watchdog)
		}
	})
	c.mu.Unlock()

	go c.bootstrap(ctx)
}

// bootstrap performs the identity lookup and resolves the initial phase.
func (c *Controller) bootstrap(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.watchdog)
	defer cancel()

	sess, err := c.idp.GetSession(ctx)
	switch {
	case errors.Is(err, identity.ErrNoSession), errors.Is(err, identity.ErrNotConfigured):
		c.resolveInitial(PhaseReadyAnonymous, nil, nil)
	case err != nil:
		// Fail open to anonymous rather than blocking.
		c.logger.Error("session lookup failed during bootstrap", "error", err)
		c.resolveInitial(PhaseReadyAnonymous, nil, nil)
	default:
		user := sess.User
		profile := c.fetchProfile(ctx, user.ID)
		c.resolveInitial(PhaseReadyAuthenticated, &user, profile)
	}
}

// resolveInitial applies the one terminal transition of the bootstrap.
// Returns false when the bootstrap already resolved or the controller was
// closed; late watchdog firings and slow lookups become no-ops here.
func (c *Controller) resolveInitial(phase Phase, user *domain.User, profile *domain.Profile) bool {
	c.mu.Lock()
	if c.closed || c.phase.Ready() {
		c.mu.Unlock()
		return false
	}
	c.phase = phase
	c.user = user
	c.profile = profile
	c.stopWatchdogLocked()
	c.markReadyLocked()
	c.mu.Unlock()

	c.notify()
	return true
}

// eventLoop applies provider notifications in delivery order. A later event
// is authoritative over any earlier in-flight resolution.
func (c *Controller) eventLoop() {
	for {
		select {
		case ev := <-c.events:
			c.handleEvent(ev)
		case <-c.stop:
			return
		}
	}
}

func (c *Controller) handleEvent(ev identity.Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen := c.gen

	switch ev.Type {
	case identity.EventSignedOut:
		c.phase = PhaseReadyAnonymous
		c.user = nil
		c.profile = nil
		c.stopWatchdogLocked()
		c.markReadyLocked()
		c.mu.Unlock()
		c.notify()
		return
	case identity.EventSignedIn, identity.EventTokenRefreshed:
		if ev.Session == nil {
			// Defensively treat a bare event as sign-out.
			c.phase = PhaseReadyAnonymous
			c.user = nil
			c.profile = nil
			c.stopWatchdogLocked()
			c.markReadyLocked()
			c.mu.Unlock()
			c.notify()
			return
		}
		user := ev.Session.User
		c.phase = PhaseReadyAuthenticated
		c.user = &user
		c.stopWatchdogLocked()
		c.markReadyLocked()
		c.mu.Unlock()
		c.notify()

		ctx, cancel := context.WithTimeout(context.Background(), c.watchdog)
		profile := c.fetchProfile(ctx, user.ID)
		cancel()

		c.mu.Lock()
		// Only apply if no later event superseded this one.
		if !c.closed && c.gen == gen && c.phase == PhaseReadyAuthenticated {
			c.profile = profile
			c.mu.Unlock()
			c.notify()
			return
		}
		c.mu.Unlock()
		return
	default:
		c.mu.Unlock()
	}
}

// fetchProfile looks up the profile for an identity. Lookup errors are
// logged and swallowed: profile absence never blocks authentication
// readiness.
func (c *Controller) fetchProfile(ctx context.Context, userID string) *domain.Profile {
	if c.profiles == nil {
		return nil
	}
	profile, err := c.profiles.GetProfile(ctx, userID)
	if err != nil {
		c.logger.Error("profile fetch failed, continuing without profile",
			"user_id", userID, "error", err)
		return nil
	}
	return profile
}

// SignIn passes through to the identity provider. The phase machine is not
// touched here; the provider's SIGNED_IN event performs the transition.
func (c *Controller) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	return c.idp.SignInWithPassword(ctx, email, password)
}

// SignUp passes through to the identity provider, mapping the
// already-registered case onto a named outcome.
func (c *Controller) SignUp(ctx context.Context, email, password string) (SignUpResult, error) {
	user, err := c.idp.SignUp(ctx, email, password)
	if errors.Is(err, identity.ErrUserAlreadyExists) {
		return SignUpResult{Status: SignUpUserAlreadyExists}, nil
	}
	if err != nil {
		return SignUpResult{}, err
	}
	return SignUpResult{Status: SignUpOK, User: user}, nil
}

// SignOut passes through to the identity provider. The SIGNED_OUT event
// flips the phase and clears the cached profile.
func (c *Controller) SignOut(ctx context.Context) error {
	return c.idp.SignOut(ctx)
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Profile returns the cached profile of the signed-in identity, if any.
func (c *Controller) Profile() *domain.Profile {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profile == nil {
		return nil
	}
	copied := *c.profile
	return &copied
}

// SetProfile echoes an externally performed profile update into the cache.
// The write is ignored unless it concerns the currently signed-in identity.
func (c *Controller) SetProfile(profile *domain.Profile) {
	if profile == nil {
		return
	}
	c.mu.Lock()
	if c.closed || c.user == nil || c.user.ID != profile.ID {
		c.mu.Unlock()
		return
	}
	copied := *profile
	c.profile = &copied
	c.mu.Unlock()
	c.notify()
}

// WaitUntilReady blocks until the phase machine resolves or ctx ends.
func (c *Controller) WaitUntilReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel receiving state snapshots after each change,
// plus a cancel func. Slow receivers miss intermediate snapshots rather
// than blocking the controller.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 4)
	c.mu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
	return ch, cancel
}

// Close tears the controller down: the watchdog is cleared, the event loop
// stops, and any pending continuation becomes a no-op. In-flight provider
// calls are allowed to complete and are simply ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.stopWatchdogLocked()
	unsub := c.unsubscribe
	c.mu.Unlock()

	close(c.stop)
	if unsub != nil {
		unsub()
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{Phase: c.phase}
	if c.user != nil {
		user := *c.user
		snap.User = &user
	}
	if c.profile != nil {
		profile := *c.profile
		snap.Profile = &profile
	}
	return snap
}

func (c *Controller) stopWatchdogLocked() {
	if c.watchdogTimer != nil {
		c.watchdogTimer.Stop()
		c.watchdogTimer = nil
	}
}

func (c *Controller) markReadyLocked() {
	if !c.readyClosed {
		c.readyClosed = true
		close(c.ready)
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	channels := make([]chan Snapshot, 0, len(c.subscribers))
	for _, ch := range c.subscribers {
		channels = append(channels, ch)
	}
	c.mu.Unlock()

	for _, ch := range channels {
		select {
		case ch <- snap:
		default:
		}
	}
}
