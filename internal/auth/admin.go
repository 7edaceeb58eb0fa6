package auth

import (
	"crypto/sha256"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

const ContextKeyAdmin = "auth_admin"

// AdminMiddleware guards the admin API with a bearer token checked against a
// bcrypt hash.
type AdminMiddleware struct {
	tokenHash string
	logger    *slog.Logger

	// sha256 of the last token that passed bcrypt verification.
	mu       sync.RWMutex
	accepted [32]byte
	hasValid bool
}

func NewAdminMiddleware(tokenHash string, logger *slog.Logger) *AdminMiddleware {
	return &AdminMiddleware{
		tokenHash: tokenHash,
		logger:    logger.With("component", "admin_auth"),
	}
}

// Enabled reports whether an admin token hash is configured.
func (m *AdminMiddleware) Enabled() bool {
	return m.tokenHash != ""
}

func (m *AdminMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Enabled() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "admin API is disabled",
				"code":  "ADMIN_DISABLED",
			})
			return
		}

		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" || !m.valid(token) {
			m.logger.Warn("rejected admin request", "path", c.Request.URL.Path, "ip", c.ClientIP())
			c.Header("WWW-Authenticate", `Bearer realm="admin"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
				"code":  "UNAUTHORIZED",
			})
			return
		}

		c.Set(ContextKeyAdmin, true)
		c.Next()
	}
}

func (m *AdminMiddleware) valid(token string) bool {
	digest := sha256.Sum256([]byte(token))

	m.mu.RLock()
	cached := m.hasValid && m.accepted == digest
	m.mu.RUnlock()
	if cached {
		return true
	}

	if err := CheckToken(token, m.tokenHash); err != nil {
		return false
	}

	m.mu.Lock()
	m.accepted = digest
	m.hasValid = true
	m.mu.Unlock()
	return true
}

// bearerToken extracts the token from "Bearer <token>".
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// IsAdmin reports whether the request passed RequireAdmin.
func IsAdmin(c *gin.Context) bool {
	return c.GetBool(ContextKeyAdmin)
}
