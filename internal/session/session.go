// Package session keeps login state server-side in sessions.db and identifies
// it with a signed cookie.
package session

import (
	"errors"
	"time"
)

// ErrNoSession is returned when a session id is unknown or expired
var ErrNoSession = errors.New("session not found")

// Data is the server-side payload of a session
type Data struct {
	AccessToken string `msgpack:"access_token"`
	ProfileID   string `msgpack:"profile_id"`
	Verifier    string `msgpack:"verifier"` // PKCE verifier waiting for the callback
	State       string `msgpack:"state"`    // OAuth state waiting for the callback
}

// Session is one browser session
type Session struct {
	ID        string
	Data      Data
	ExpiresAt time.Time
	isNew     bool
}

// Authenticated reports whether the session holds an access token
func (s *Session) Authenticated() bool {
	return s != nil && s.Data.AccessToken != ""
}

// IsNew reports whether the session was created by this request
func (s *Session) IsNew() bool {
	return s.isNew
}

// PopVerifier returns the pending PKCE verifier and state and clears both
func (s *Session) PopVerifier() (verifier, state string) {
	verifier, state = s.Data.Verifier, s.Data.State
	s.Data.Verifier = ""
	s.Data.State = ""
	return verifier, state
}

// Clear drops everything the session holds
func (s *Session) Clear() {
	s.Data = Data{}
}
