package session

import (
	"encoding/gob"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

const (
	// SessionName is the name of the session cookie
	SessionName = "emrproxy_session"
)

// Flash is a one-shot notice carried across a redirect, shown once on the
// next page load
type Flash struct {
	Level   string // "success" or "error"
	Message string
}

func init() {
	// CookieStore serializes values with gob
	gob.Register(Flash{})
}

// Manager wraps gorilla/sessions. The proxy authenticates upstream with a
// fixed credential set, not per browser, so sessions carry flash messages
// only.
type Manager struct {
	store *sessions.CookieStore
}

// derivedKey expands the master secret into a 32-byte key for the given
// domain so the cookie auth and encryption keys differ
func derivedKey(secret []byte, domain string) []byte {
	out := make([]byte, 32)
	kr := hkdf.Expand(sha3.New224, secret, []byte(domain))
	if _, err := io.ReadFull(kr, out); err != nil {
		panic(err)
	}
	return out
}

// NewManager creates a new session manager
// secretKey should be 32 bytes
func NewManager(secretKey []byte) *Manager {
	store := sessions.NewCookieStore(
		derivedKey(secretKey, "cookie-auth"),
		derivedKey(secretKey, "cookie-encrypt"),
	)

	// Configure session options
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   60 * 60, // flashes only need to survive one redirect
		HttpOnly: true,
		Secure:   false, // Set to true in production with HTTPS
		SameSite: http.SameSiteLaxMode,
	}

	return &Manager{
		store: store,
	}
}

// AddFlash queues a notice for the next page load
func (m *Manager) AddFlash(r *http.Request, w http.ResponseWriter, level, message string) error {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		// Create new session if the cookie is missing or stale
		session, _ = m.store.New(r, SessionName)
	}

	session.AddFlash(Flash{Level: level, Message: message})
	return session.Save(r, w)
}

// Flashes drains queued notices. The session is saved afterwards so each
// notice renders exactly once.
func (m *Manager) Flashes(r *http.Request, w http.ResponseWriter) []Flash {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return nil
	}

	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	_ = session.Save(r, w)

	flashes := make([]Flash, 0, len(raw))
	for _, v := range raw {
		if f, ok := v.(Flash); ok {
			flashes = append(flashes, f)
		}
	}
	return flashes
}

// GetSession returns the session object for storing additional data
func (m *Manager) GetSession(r *http.Request) (*sessions.Session, error) {
	return m.store.Get(r, SessionName)
}
