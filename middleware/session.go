package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/services"
)

const sessionIDKey = "session_id"

// SessionAuth requires an "Authorization: Bearer <token>" header and stores
// the token's session id on the context.
func SessionAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenStr) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := authService.ValidateToken(strings.TrimSpace(tokenStr))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(sessionIDKey, claims.SessionID)
		c.Next()
	}
}

// SessionID returns the id stored by SessionAuth, or "".
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

// InFlight allows one submission per session at a time.
type InFlight struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewInFlight() *InFlight {
	return &InFlight{busy: make(map[string]struct{})}
}

func (f *InFlight) TryAcquire(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.busy[key]; ok {
		return false
	}
	f.busy[key] = struct{}{}
	return true
}

func (f *InFlight) Release(key string) {
	f.mu.Lock()
	delete(f.busy, key)
	f.mu.Unlock()
}

// Guard rejects a request with 409 while another one of the same session is
// still running. It must run after SessionAuth.
func (f *InFlight) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := SessionID(c)
		if !f.TryAcquire(sid) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a submission is already in progress for this session"})
			return
		}
		defer f.Release(sid)
		c.Next()
	}
}
