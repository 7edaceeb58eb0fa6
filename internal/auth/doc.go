// Package auth holds the edge middleware of the HTTP API.
//
// Visitors are anonymous. A visitor gets a random UUID stored in an scs
// session the first time they touch a session-backed route (favorites); the
// session store is the main SQLite database, or process memory when the
// gallery runs on PostgreSQL.
//
// Admin routes require a bearer token whose bcrypt hash is configured in
// ADMIN_TOKEN_HASH. Generate one with:
//
//	wallpaperverse admin-token
//
// Session-backed writes are CSRF protected (gorilla/csrf) when CSRF_SECRET is
// set. Every response carries security headers and requests are rate limited
// per client IP.
package auth
