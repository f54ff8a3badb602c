// Package auth owns the persisted credential slots and decides whether a
// stored bearer token may still be used.
package auth

import (
	"context"
	"fmt"

	"github.com/andjpython/Estacionamento-Free/internal/store"
	"github.com/andjpython/Estacionamento-Free/pkg/model"
)

// slot is a single named value in a Store.
type slot struct {
	st  store.Store
	key string
}

func (s slot) get(ctx context.Context) (string, bool, error) {
	v, ok, err := s.st.Get(ctx, s.key)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", s.key, err)
	}
	if !ok || v == "" {
		return "", false, nil
	}
	return v, true, nil
}

func (s slot) set(ctx context.Context, v string) error {
	if err := s.st.Put(ctx, s.key, v); err != nil {
		return fmt.Errorf("write %s: %w", s.key, err)
	}
	return nil
}

func (s slot) clear(ctx context.Context) error {
	if err := s.st.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear %s: %w", s.key, err)
	}
	return nil
}

// CredentialStore holds the supervisor's bearer token under the authToken key.
type CredentialStore struct {
	slot slot
}

// NewCredentialStore returns a CredentialStore backed by st.
func NewCredentialStore(st store.Store) *CredentialStore {
	return &CredentialStore{slot: slot{st: st, key: model.KeyAuthToken}}
}

// Get returns the stored token, if any.
func (c *CredentialStore) Get(ctx context.Context) (string, bool, error) {
	return c.slot.get(ctx)
}

// Set replaces the stored token.
func (c *CredentialStore) Set(ctx context.Context, token string) error {
	return c.slot.set(ctx, token)
}

// Clear removes the stored token.
func (c *CredentialStore) Clear(ctx context.Context) error {
	return c.slot.clear(ctx)
}

// IdentityStore holds the logged-in operator badge under the matriculaLogada
// key. The badge is UI state only and grants no authority.
type IdentityStore struct {
	slot slot
}

// NewIdentityStore returns an IdentityStore backed by st.
func NewIdentityStore(st store.Store) *IdentityStore {
	return &IdentityStore{slot: slot{st: st, key: model.KeyOperatorBadge}}
}

// Get returns the stored badge, if any.
func (i *IdentityStore) Get(ctx context.Context) (string, bool, error) {
	return i.slot.get(ctx)
}

// Set records badge as the logged-in operator.
func (i *IdentityStore) Set(ctx context.Context, badge string) error {
	return i.slot.set(ctx, badge)
}

// Clear forgets the logged-in operator.
func (i *IdentityStore) Clear(ctx context.Context) error {
	return i.slot.clear(ctx)
}
