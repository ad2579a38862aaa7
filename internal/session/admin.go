package session

import "sync"

// TokenStore persists the admin auth token across restarts. It is the only
// piece of session state that survives a reload.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	DeleteToken() error
}

// Admin tracks the administrator login state. Authentication is derived from
// the mere presence of a stored token; expiry is the backend's concern.
type Admin struct {
	mu    sync.Mutex
	store TokenStore
	token string
}

// NewAdmin initializes the admin session from the token store.
func NewAdmin(store TokenStore) (*Admin, error) {
	token, err := store.Token()
	if err != nil {
		return nil, err
	}
	return &Admin{store: store, token: token}, nil
}

// Authenticated reports whether a token is held.
func (a *Admin) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token != ""
}

// Token returns the current token, or "" when logged out.
func (a *Admin) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// Login stores the token durably and marks the session authenticated.
func (a *Admin) Login(token string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.SetToken(token); err != nil {
		return err
	}
	a.token = token
	return nil
}

// Logout discards the token.
func (a *Admin) Logout() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.store.DeleteToken(); err != nil {
		return err
	}
	a.token = ""
	return nil
}
