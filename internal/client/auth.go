package client

import "sync"

// AuthCell is the single mutable slot holding the ambient bearer
// credential. The external auth collaborator replaces it on login/logout;
// every outgoing request reads it at the moment it is issued, so a request
// already in flight keeps the credential it was built with.
type AuthCell struct {
	mu    sync.RWMutex
	token string
}

// NewAuthCell returns a cell holding token; pass "" for no credential.
func NewAuthCell(token string) *AuthCell {
	return &AuthCell{token: token}
}

// Set replaces the credential. The hook the external login flow calls.
func (c *AuthCell) Set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Clear drops the credential, e.g. on logout.
func (c *AuthCell) Clear() { c.Set("") }

// Token returns the current credential; ok is false when none is held.
func (c *AuthCell) Token() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token, c.token != ""
}
