package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/services"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// SessionWebSocket streams change notifications of the token's session so a
// results view can reload when another view saves a dataset. Browsers cannot
// set headers on a websocket, so the token comes in the query string.
func SessionWebSocket(sessions session.Provider, authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token query parameter"})
			return
		}

		claims, err := authService.ValidateToken(tokenStr)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Read pump: detect client disconnect
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		changes, err := session.NewStore(sessions.Scope(claims.SessionID)).Watch(ctx)
		if err != nil {
			log.Printf("session watch failed session=%s err=%v", claims.SessionID, err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				err := conn.WriteJSON(gin.H{
					"type": "session_change",
					"data": change,
				})
				if err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			}
		}
	}
}
