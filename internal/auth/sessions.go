package auth

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/google/uuid"

	"github.com/wallpaperverse/api/internal/config"
)

const (
	SessionKeyVisitorID = "visitor_id"
	SessionKeyCreatedAt = "created_at"

	DefaultSessionLifetime = 365 * 24 * time.Hour
)

// SessionManager wraps scs.SessionManager with visitor helpers.
type SessionManager struct {
	*scs.SessionManager
}

// NewSQLiteStore creates the sessions table if needed and returns a store
// backed by it. sqlDB should be the *sql.DB underneath GORM.
func NewSQLiteStore(sqlDB *sql.DB) (scs.Store, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, err
	}
	return sqlite3store.New(sqlDB), nil
}

// NewMemoryStore is used when the main database is not SQLite.
func NewMemoryStore() scs.Store {
	return memstore.New()
}

// NewSessionManager creates a session manager for anonymous visitors.
func NewSessionManager(store scs.Store, cfg config.Session) *SessionManager {
	sm := scs.New()
	sm.Store = store

	sm.Lifetime = cfg.Lifetime
	if sm.Lifetime <= 0 {
		sm.Lifetime = DefaultSessionLifetime
	}

	sm.Cookie.Name = "wv_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"
	sm.Cookie.Persist = true

	return &SessionManager{SessionManager: sm}
}

// VisitorID returns the visitor id held in the session, or "" when the
// session has none yet.
func (sm *SessionManager) VisitorID(ctx context.Context) string {
	return sm.GetString(ctx, SessionKeyVisitorID)
}

// EnsureVisitorID returns the session's visitor id, assigning a new UUID on
// first use.
func (sm *SessionManager) EnsureVisitorID(ctx context.Context) string {
	if id := sm.VisitorID(ctx); id != "" {
		return id
	}
	id := uuid.NewString()
	sm.Put(ctx, SessionKeyVisitorID, id)
	sm.Put(ctx, SessionKeyCreatedAt, time.Now().UTC().Format(time.RFC3339))
	return id
}

// ForgetVisitor destroys the session; the next request starts a new visitor.
func (sm *SessionManager) ForgetVisitor(ctx context.Context) error {
	return sm.Destroy(ctx)
}
