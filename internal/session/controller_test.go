package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stackie-hr/stackie-server/internal/domain"
	"github.com/stackie-hr/stackie-server/internal/identity"
)

// fakeIdentity is a scriptable identity client for controller tests.
type fakeIdentity struct {
	mu         sync.Mutex
	configured bool
	session    *domain.Session
	sessionErr error
	delay      time.Duration
	signUpUser *domain.User
	signUpErr  error
	callbacks  map[int]identity.Callback
	next       int
}

func (f *fakeIdentity) IsConfigured() bool { return f.configured }

func (f *fakeIdentity) GetSession(ctx context.Context) (*domain.Session, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeIdentity) SignInWithPassword(_ context.Context, _, _ string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return f.session, nil
}

func (f *fakeIdentity) SignUp(_ context.Context, _, _ string) (*domain.User, error) {
	return f.signUpUser, f.signUpErr
}

func (f *fakeIdentity) SignOut(_ context.Context) error { return nil }

func (f *fakeIdentity) OnAuthStateChange(fn identity.Callback) identity.Unsubscribe {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callbacks == nil {
		f.callbacks = make(map[int]identity.Callback)
	}
	id := f.next
	f.next++
	f.callbacks[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.callbacks, id)
	}
}

func (f *fakeIdentity) subscriberCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.callbacks)
}

func (f *fakeIdentity) emit(ev identity.Event) {
	f.mu.Lock()
	fns := make([]identity.Callback, 0, len(f.callbacks))
	for _, fn := range f.callbacks {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// fakeProfiles is a scriptable profile source.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
	err      error
}

func (f *fakeProfiles) GetProfile(_ context.Context, id string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[id], nil
}

func testSession(userID, email string) *domain.Session {
	return &domain.Session{
		AccessToken:  "token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         domain.User{ID: userID, Email: email},
	}
}

// waitForPhase polls until the controller reaches the phase or times out.
func waitForPhase(t *testing.T, c *Controller, want Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.Phase() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected phase %s, got %s", want, c.Phase())
}

func TestInitializeUnconfiguredResolvesAnonymous(t *testing.T) {
	c := New(identity.NewDisabled(), nil, time.Second, nil)
	defer c.Close()

	if c.Phase() != PhaseUninitialized {
		t.Fatalf("Expected uninitialized phase before Initialize, got %s", c.Phase())
	}

	c.Initialize(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.WaitUntilReady(ctx); err != nil {
		t.Fatalf("WaitUntilReady failed: %v", err)
	}
	if c.Phase() != PhaseReadyAnonymous {
		t.Errorf("Expected ready_anonymous, got %s", c.Phase())
	}
}

func TestWatchdogForcesAnonymousOnHangingLookup(t *testing.T) {
	idp := &fakeIdentity{configured: true, delay: 10 * time.Second}
	c := New(idp, nil, 50*time.Millisecond, nil)
	defer c.Close()

	start := time.Now()
	c.Initialize(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.WaitUntilReady(ctx); err != nil {
		t.Fatalf("WaitUntilReady failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected watchdog to resolve quickly, took %s", elapsed)
	}
	if c.Phase() != PhaseReadyAnonymous {
		t.Errorf("Expected ready_anonymous after watchdog, got %s", c.Phase())
	}
}

func TestBootstrapAuthenticatedWithProfile(t *testing.T) {
	idp := &fakeIdentity{configured: true, session: testSession("u1", "jane@example.com")}
	profiles := &fakeProfiles{profiles: map[string]*domain.Profile{
		"u1": {ID: "u1", Email: "jane@example.com", FullName: "Jane Doe"},
	}}
	c := New(idp, profiles, time.Second, nil)
	defer c.Close()

	c.Initialize(context.Background())
	waitForPhase(t, c, PhaseReadyAuthenticated)

	snap := c.Snapshot()
	if snap.User == nil || snap.User.ID != "u1" {
		t.Fatalf("Expected user u1 in snapshot, got %+v", snap.User)
	}
	if snap.Profile == nil || snap.Profile.FullName != "Jane Doe" {
		t.Errorf("Expected profile for Jane Doe, got %+v", snap.Profile)
	}
}

func TestProfileFetchFailureDegradesForward(t *testing.T) {
	idp := &fakeIdentity{configured: true, session: testSession("u1", "jane@example.com")}
	profiles := &fakeProfiles{err: errors.New("profile backend down")}
	c := New(idp, profiles, time.Second, nil)
	defer c.Close()

	c.Initialize(context.Background())
	waitForPhase(t, c, PhaseReadyAuthenticated)

	if c.Profile() != nil {
		t.Errorf("Expected nil profile after fetch failure, got %+v", c.Profile())
	}
}

func TestLateLookupAfterWatchdogIsNoOp(t *testing.T) {
	idp := &fakeIdentity{
		configured: true,
		session:    testSession("u1", "jane@example.com"),
		delay:      150 * time.Millisecond,
	}
	c := New(idp, nil, 20*time.Millisecond, nil)
	defer c.Close()

	c.Initialize(context.Background())
	waitForPhase(t, c, PhaseReadyAnonymous)

	// The lookup outlives the watchdog; its result must not flip the phase.
	time.Sleep(300 * time.Millisecond)
	if c.Phase() != PhaseReadyAnonymous {
		t.Errorf("Expected phase to stay ready_anonymous, got %s", c.Phase())
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	idp := &fakeIdentity{configured: true, sessionErr: identity.ErrNoSession}
	c := New(idp, nil, time.Second, nil)
	defer c.Close()

	c.Initialize(context.Background())
	waitForPhase(t, c, PhaseReadyAnonymous)

	c.Initialize(context.Background())
	c.Initialize(context.Background())

	if c.Phase() != PhaseReadyAnonymous {
		t.Errorf("Expected repeated Initialize to be a no-op, got %s", c.Phase())
	}
}

func TestAuthEventsFlipPhase(t *testing.T) {
	idp := &fakeIdentity{configured: true, sessionErr: identity.ErrNoSession}
	profiles := &fakeProfiles{profiles: map[string]*domain.Profile{
		"u1": {ID: "u1", Email: "jane@example.com", FullName: "Jane Doe"},
	}}
	c := New(idp, profiles, time.Second, nil)
	defer c.Close()

	c.Initialize(context.Background())
	waitForPhase(t, c, PhaseReadyAnonymous)

	idp.emit(identity.Event{Type: identity.EventSignedIn, Session: testSession("u1", "jane@example.com")})
	waitForPhase(t, c, PhaseReadyAuthenticated)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && c.Profile() == nil {
		time.Sleep(5 * time.Millisecond)
	}
	if p := c.Profile(); p == nil || p.FullName != "Jane Doe" {
		t.Fatalf("Expected profile after sign-in event, got %+v", p)
	}

	idp.emit(identity.Event{Type: identity.EventSignedOut})
	waitForPhase(t, c, PhaseReadyAnonymous)

	snap := c.Snapshot()
	if snap.User != nil || snap.Profile != nil {
		t.Errorf("Expected user and profile cleared after sign-out, got %+v", snap)
	}
}

func TestSignUpMapsAlreadyRegistered(t *testing.T) {
	idp := &fakeIdentity{configured: true, signUpErr: identity.ErrUserAlreadyExists}
	c := New(idp, nil, time.Second, nil)
	defer c.Close()

	result, err := c.SignUp(context.Background(), "jane@example.com", "secret123")
	if err != nil {
		t.Fatalf("Expected no error for already registered email, got %v", err)
	}
	if result.Status != SignUpUserAlreadyExists {
		t.Errorf("Expected status %s, got %s", SignUpUserAlreadyExists, result.Status)
	}
}

func TestSignUpSuccess(t *testing.T) {
	idp := &fakeIdentity{configured: true, signUpUser: &domain.User{ID: "u2", Email: "new@example.com"}}
	c := New(idp, nil, time.Second, nil)
	defer c.Close()

	result, err := c.SignUp(context.Background(), "new@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if result.Status != SignUpOK || result.User == nil || result.User.ID != "u2" {
		t.Errorf("Expected ok result with user u2, got %+v", result)
	}
}

func TestCloseSuppressesLaterEvents(t *testing.T) {
	idp := &fakeIdentity{configured: true, sessionErr: identity.ErrNoSession}
	c := New(idp, nil, time.Second, nil)

	c.Initialize(context.Background())
	waitForPhase(t, c, PhaseReadyAnonymous)

	c.Close()
	idp.emit(identity.Event{Type: identity.EventSignedIn, Session: testSession("u1", "jane@example.com")})

	time.Sleep(50 * time.Millisecond)
	if c.Phase() != PhaseReadyAnonymous {
		t.Errorf("Expected phase unchanged after Close, got %s", c.Phase())
	}
}

func TestSetProfileIgnoresOtherIdentity(t *testing.T) {
	idp := &fakeIdentity{configured: true, session: testSession("u1", "jane@example.com")}
	c := New(idp, nil, time.Second, nil)
	defer c.Close()

	c.Initialize(context.Background())
	waitForPhase(t, c, PhaseReadyAuthenticated)

	c.SetProfile(&domain.Profile{ID: "someone-else", FullName: "Imposter"})
	if c.Profile() != nil {
		t.Errorf("Expected profile write for another identity to be ignored, got %+v", c.Profile())
	}

	c.SetProfile(&domain.Profile{ID: "u1", FullName: "Jane Doe"})
	if p := c.Profile(); p == nil || p.FullName != "Jane Doe" {
		t.Errorf("Expected profile echo for signed-in identity, got %+v", p)
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	idp := &fakeIdentity{configured: true, sessionErr: identity.ErrNoSession}
	c := New(idp, nil, time.Second, nil)
	defer c.Close()

	ch, cancel := c.Subscribe()
	defer cancel()

	c.Initialize(context.Background())

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if snap.Phase == PhaseReadyAnonymous {
				return
			}
		case <-deadline:
			t.Fatal("Expected a ready_anonymous snapshot on the subscription")
		}
	}
}

func TestCloseDuringInitializeReleasesSubscription(t *testing.T) {
	idp := &fakeIdentity{configured: true, sessionErr: identity.ErrNoSession}
	c := New(idp, nil, 50*time.Millisecond, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.Initialize(context.Background())
	}()
	go func() {
		defer wg.Done()
		c.Close()
	}()
	wg.Wait()

	// Whichever side won, the provider callback must be released.
	if got := idp.subscriberCount(); got != 0 {
		t.Errorf("Expected the auth subscription to be released, got %d", got)
	}
}
