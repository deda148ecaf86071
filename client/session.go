package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/layer-3/phoneauth/core"
)

// Phase is the coarse login state of a Store
type Phase int

const (
	PhaseAnonymous Phase = iota
	PhaseAuthenticating
	PhasePartial  // credential held, profile absent
	PhaseComplete // credential and profile held
)

func (p Phase) String() string {
	switch p {
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticating:
		return "authenticating"
	case PhasePartial:
		return "authenticated-partial"
	case PhaseComplete:
		return "authenticated-complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// LoginOutcome tells how far a Login got
type LoginOutcome int

const (
	// LoginFailed means nothing was committed
	LoginFailed LoginOutcome = iota
	// LoginPartial means the credential was stored but the profile was not
	LoginPartial
	// LoginComplete means both credential and profile are stored
	LoginComplete
)

func (o LoginOutcome) String() string {
	switch o {
	case LoginFailed:
		return "failed"
	case LoginPartial:
		return "partial"
	case LoginComplete:
		return "complete"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// State is a point in time copy of the session
type State struct {
	Token         string
	Profile       *core.Profile
	ChallengeID   string
	ChallengeCode string
	IsLoading     bool
	LastError     string
}

// persisted is the durable subset of State
type persisted struct {
	Token   string        `json:"token,omitempty"`
	Profile *core.Profile `json:"profile,omitempty"`
}

// Store owns the client session. Every mutation goes through its methods.
// Concurrent Login or FetchCurrentProfile calls are not coordinated with
// each other; callers are expected to serialize them.
type Store struct {
	mu             sync.Mutex
	state          State
	authenticating bool

	backend Backend
	storage KeyValueStore
	logger  *slog.Logger
}

// New creates a Store talking to the server at baseURL. The pipeline it
// builds reads credentials from, and reports 401s to, the returned Store.
func New(baseURL string, storage KeyValueStore, opts ...Option) *Store {
	o := buildOptions(opts)
	s := newStore(storage, o.logger)
	s.backend = NewAPI(NewPipeline(baseURL, s, opts...))
	s.restore()
	return s
}

// NewStore creates a Store over an arbitrary backend
func NewStore(backend Backend, storage KeyValueStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := newStore(storage, logger)
	s.backend = backend
	s.restore()
	return s
}

func newStore(storage KeyValueStore, logger *slog.Logger) *Store {
	if storage == nil {
		storage = NewMemoryKV()
	}
	return &Store{storage: storage, logger: logger}
}

// restore loads the durable subset. Transient fields always start empty.
func (s *Store) restore() {
	raw, err := s.storage.Get(StorageKey)
	if err != nil {
		s.logger.Warn("failed to read persisted session", slog.Any("error", err))
		return
	}
	if raw == nil {
		return
	}

	var p persisted
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn("discarding unreadable persisted session", slog.Any("error", err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Token = p.Token
	if p.Token != "" {
		s.state.Profile = p.Profile
	}
}

// Token returns the current credential, or "" when anonymous
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Token
}

// Invalidate drops the credential and profile. The pipeline calls it when
// the server answers 401.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Token = ""
	s.state.Profile = nil
	s.persistLocked()
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	if st.Profile != nil {
		p := *st.Profile
		st.Profile = &p
	}
	return st
}

// Phase reports the current login phase
func (s *Store) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.authenticating:
		return PhaseAuthenticating
	case s.state.Token == "":
		return PhaseAnonymous
	case s.state.Profile == nil:
		return PhasePartial
	default:
		return PhaseComplete
	}
}

// SetChallenge records challenge data obtained elsewhere
func (s *Store) SetChallenge(id, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.ChallengeID = id
	s.state.ChallengeCode = code
}

// ClearChallenge forgets the current challenge
func (s *Store) ClearChallenge() {
	s.SetChallenge("", "")
}

// RequestChallenge asks the server for a new challenge and keeps it in the
// transient state
func (s *Store) RequestChallenge(ctx context.Context) (Challenge, error) {
	s.begin()
	defer s.end()

	c, err := s.backend.Captcha(ctx)
	if err != nil {
		s.fail(err)
		return Challenge{}, err
	}

	s.SetChallenge(c.ChallengeID, c.Code)
	return c, nil
}

// Login runs the login sequence: exchange the challenge for a credential,
// store the credential, then fetch the profile with it. A profile failure
// keeps the credential and returns LoginPartial with an error wrapping
// ErrProfileFetchFailed.
func (s *Store) Login(ctx context.Context, username, code, challengeID string) (LoginOutcome, error) {
	s.begin()
	s.mu.Lock()
	s.authenticating = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.authenticating = false
		s.mu.Unlock()
		s.end()
	}()

	res, err := s.backend.Login(ctx, LoginParams{
		Username:    username,
		Code:        code,
		ChallengeID: challengeID,
	})
	if err != nil {
		s.fail(err)
		return LoginFailed, err
	}

	// Commit point: the credential survives whatever happens next
	s.mu.Lock()
	s.state.Token = res.Token
	s.state.Profile = nil
	s.state.ChallengeID = ""
	s.state.ChallengeCode = ""
	s.persistLocked()
	s.mu.Unlock()

	profile, err := s.backend.CurrentUser(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrProfileFetchFailed, err)
		s.fail(err)
		if s.Token() == "" {
			// A 401 on the profile call already cleared the credential
			return LoginFailed, err
		}
		return LoginPartial, err
	}

	if !s.setProfile(res.Token, profile) {
		err := fmt.Errorf("%w: session cleared during login", ErrProfileFetchFailed)
		s.fail(err)
		return LoginFailed, err
	}
	return LoginComplete, nil
}

// FetchCurrentProfile reloads the profile. It fails with ErrNoCredential
// without calling the server when no credential is held.
func (s *Store) FetchCurrentProfile(ctx context.Context) (core.Profile, error) {
	token := s.Token()
	if token == "" {
		s.fail(ErrNoCredential)
		return core.Profile{}, ErrNoCredential
	}

	s.begin()
	defer s.end()

	profile, err := s.backend.CurrentUser(ctx)
	if err != nil {
		s.fail(err)
		return core.Profile{}, err
	}

	if !s.setProfile(token, profile) {
		s.fail(ErrNoCredential)
		return core.Profile{}, ErrNoCredential
	}
	return profile, nil
}

// Logout clears the local session
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Token = ""
	s.state.Profile = nil
	s.state.ChallengeID = ""
	s.state.ChallengeCode = ""
	s.persistLocked()
}

// LogoutBackend notifies the server, then clears the local session whether
// or not the notification succeeded
func (s *Store) LogoutBackend(ctx context.Context) {
	defer s.Logout()

	if err := s.backend.Logout(ctx); err != nil {
		s.logger.WarnContext(ctx, "backend logout failed", slog.Any("error", err))
	}
}

// setProfile stores profile only while token is still the held credential
func (s *Store) setProfile(token string, profile core.Profile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Token == "" || s.state.Token != token {
		return false
	}
	s.state.Profile = &profile
	s.persistLocked()
	return true
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IsLoading = true
	s.state.LastError = ""
}

func (s *Store) end() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.IsLoading = false
}

func (s *Store) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.LastError = err.Error()
}

func (s *Store) persistLocked() {
	if s.state.Token == "" {
		if err := s.storage.Delete(StorageKey); err != nil {
			s.logger.Warn("failed to clear persisted session", slog.Any("error", err))
		}
		return
	}

	raw, err := json.Marshal(persisted{Token: s.state.Token, Profile: s.state.Profile})
	if err != nil {
		s.logger.Warn("failed to encode session", slog.Any("error", err))
		return
	}
	if err := s.storage.Set(StorageKey, raw); err != nil {
		s.logger.Warn("failed to persist session", slog.Any("error", err))
	}
}
