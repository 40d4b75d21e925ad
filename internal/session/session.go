// Package session owns the credential lifecycle: one place decodes the stored
// bearer token and exposes the current role, instead of every screen reading
// storage on its own.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"campusportal/internal/auth"
)

// ErrUnauthenticated means no credential is stored. Expected; callers route
// to login.
var ErrUnauthenticated = errors.New("session: no stored credential")

// ErrInvalidCredential means a credential was stored but failed to decode.
// Load discards the stored credential before returning this, so the broken
// token cannot linger in storage.
var ErrInvalidCredential = errors.New("session: stored credential is invalid")

// StorageError wraps an I/O failure from the credential store. Distinct from
// absence and decode failure; retryable.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session: credential storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CredentialStore is the persistence collaborator holding the bearer token.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// DecodeFunc turns a raw credential into validated claims.
type DecodeFunc func(token string) (auth.Claims, error)

// Context is the single owner of the stored credential. Load, Save and
// Invalidate serialize on one mutex so an Invalidate cannot race a Load into
// resurrecting a cleared token.
type Context struct {
	store  CredentialStore
	key    string
	decode DecodeFunc

	mu     sync.Mutex
	loaded bool
	claims auth.Claims
}

// New builds a session context over the given store.
func New(store CredentialStore, key string, decode DecodeFunc) *Context {
	return &Context{store: store, key: key, decode: decode}
}

// Load reads and decodes the stored credential. Absence is ErrUnauthenticated,
// an undecodable credential is ErrInvalidCredential (and the credential is
// removed from storage), store faults are *StorageError.
func (s *Context) Load(ctx context.Context) (auth.Claims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok, err := s.store.Get(ctx, s.key)
	if err != nil {
		return auth.Claims{}, &StorageError{Op: "read", Err: err}
	}
	if !ok || token == "" {
		s.loaded = false
		s.claims = auth.Claims{}
		return auth.Claims{}, ErrUnauthenticated
	}

	claims, err := s.decode(token)
	if err != nil {
		// A credential that no longer decodes is dead weight. Drop it now so
		// the next Load reports plain Unauthenticated instead of failing again.
		if rmErr := s.store.Remove(ctx, s.key); rmErr != nil {
			return auth.Claims{}, &StorageError{Op: "remove", Err: rmErr}
		}
		s.loaded = false
		s.claims = auth.Claims{}
		return auth.Claims{}, ErrInvalidCredential
	}

	s.loaded = true
	s.claims = claims
	return claims, nil
}

// Save stores a fresh credential, replacing any previous one, and primes the
// cached claims so CurrentRole works without a round trip.
func (s *Context) Save(ctx context.Context, token string) (auth.Claims, error) {
	claims, err := s.decode(token)
	if err != nil {
		return auth.Claims{}, ErrInvalidCredential
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(ctx, s.key, token); err != nil {
		return auth.Claims{}, &StorageError{Op: "write", Err: err}
	}
	s.loaded = true
	s.claims = claims
	return claims, nil
}

// CurrentRole returns the role of the last successful Load or Save, and
// whether one exists.
func (s *Context) CurrentRole() (auth.Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return auth.RoleUnknown, false
	}
	return s.claims.Role(), true
}

// Invalidate removes the stored credential and forgets the cached claims.
// Removal completes before return; a concurrent Load observes either the old
// credential or none, never a half-cleared state.
func (s *Context) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Remove(ctx, s.key); err != nil {
		return &StorageError{Op: "remove", Err: err}
	}
	s.loaded = false
	s.claims = auth.Claims{}
	return nil
}
