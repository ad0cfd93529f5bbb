package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrStorageCorrupt reports a credential with exactly one of its two keys
// present, or a user key that does not decode. [Store.Load] never returns it;
// it is handed to the self-heal hook after both keys were cleared.
var ErrStorageCorrupt = errors.New("session storage corrupt")

// ErrEmptyCredential is returned by [Store.Save] for a blank token or a user
// record without identity.
var ErrEmptyCredential = errors.New("empty credential")

// StoreOption configures a [Store].
type StoreOption func(*Store)

// WithSelfHealHook registers fn to be called after Load detected and cleared a
// corrupt credential. fn receives an error wrapping [ErrStorageCorrupt].
func WithSelfHealHook(fn func(ctx context.Context, reason error)) StoreOption {
	return func(s *Store) {
		s.onSelfHeal = fn
	}
}

// Store is the token store: scoped, synchronous persistence of exactly one
// credential pair.
//
//	Docs: package doc, "Key pair".
type Store struct {
	backend    Storage
	keys       Keys
	onSelfHeal func(context.Context, error)

	// mu serializes Save/Load/Clear so a reader never observes a pair write
	// halfway on backends without PairWriter.
	mu sync.Mutex
}

// NewStore creates a token store over backend using the given key layout.
func NewStore(backend Storage, keys Keys, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		keys:    keys,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys returns the key layout.
func (s *Store) Keys() Keys {
	return s.keys
}

// Save writes token and user as a pair. On failure the store is left as it
// was before the call.
func (s *Store) Save(ctx context.Context, token string, user UserRecord) error {
	if token == "" || !user.Valid() {
		return ErrEmptyCredential
	}
	encoded, err := EncodeUser(user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if pw, ok := s.backend.(PairWriter); ok {
		return pw.SetPair(ctx, s.keys.Token, token, s.keys.User, encoded)
	}

	prevToken, hadToken, err := s.backend.Get(ctx, s.keys.Token)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.keys.Token, token); err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.keys.User, encoded); err != nil {
		if rbErr := s.restoreLocked(ctx, prevToken, hadToken); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback token key: %w", rbErr))
		}
		return err
	}
	return nil
}

func (s *Store) restoreLocked(ctx context.Context, prev string, had bool) error {
	if had {
		return s.backend.Set(ctx, s.keys.Token, prev)
	}
	return s.backend.Delete(ctx, s.keys.Token)
}

// Load reads the pair. ok is false when no usable credential exists. A corrupt
// pair is cleared as a side effect and reported through the self-heal hook,
// never as an error; err is reserved for backend failures.
func (s *Store) Load(ctx context.Context) (Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, hasToken, err := s.backend.Get(ctx, s.keys.Token)
	if err != nil {
		return Credential{}, false, err
	}
	rawUser, hasUser, err := s.backend.Get(ctx, s.keys.User)
	if err != nil {
		return Credential{}, false, err
	}

	hasToken = hasToken && token != ""
	hasUser = hasUser && rawUser != ""

	switch {
	case !hasToken && !hasUser:
		return Credential{}, false, nil
	case hasToken != hasUser:
		which := "user"
		if hasUser {
			which = "token"
		}
		return Credential{}, false, s.healLocked(ctx, fmt.Errorf("%w: %s key missing", ErrStorageCorrupt, which))
	}

	user, err := DecodeUser(rawUser)
	if err != nil {
		return Credential{}, false, s.healLocked(ctx, fmt.Errorf("%w: %v", ErrStorageCorrupt, err))
	}

	return Credential{Token: token, User: user}, true, nil
}

func (s *Store) healLocked(ctx context.Context, reason error) error {
	if err := s.backend.Delete(ctx, s.keys.Token, s.keys.User); err != nil {
		return err
	}
	if s.onSelfHeal != nil {
		s.onSelfHeal(ctx, reason)
	}
	return nil
}

// Clear removes both keys. It is idempotent.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Delete(ctx, s.keys.Token, s.keys.User)
}

// Token returns the stored token when the pair is complete. It is the read
// used to attach bearer headers.
func (s *Store) Token(ctx context.Context) (string, bool) {
	cred, ok, err := s.Load(ctx)
	if err != nil || !ok {
		return "", false
	}
	return cred.Token, true
}

// HasCredential reports whether either key is present. It is a cheap probe
// and does not heal; a half-written pair still counts as "non-empty".
func (s *Store) HasCredential(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok, err := s.backend.Get(ctx, s.keys.Token); err == nil && ok && v != "" {
		return true
	}
	if v, ok, err := s.backend.Get(ctx, s.keys.User); err == nil && ok && v != "" {
		return true
	}
	return false
}
