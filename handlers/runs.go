package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/middleware"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/services"
)

type RunHandler struct {
	ledger *services.RunLedger
}

func NewRunHandler(ledger *services.RunLedger) *RunHandler {
	return &RunHandler{ledger: ledger}
}

// ListRuns pages through the caller's session history, newest first.
func (h *RunHandler) ListRuns(c *gin.Context) {
	if !h.ledger.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
		return
	}
	p := ParsePagination(c)

	sid := middleware.SessionID(c)
	rows, hasMore, err := h.ledger.List(c.Request.Context(), sid, p.Limit, p.Before)
	if err != nil {
		log.Printf("run ledger list failed session=%s err=%v", sid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database query failed"})
		return
	}

	resp := CursorResponse{Data: rows, HasMore: hasMore}
	if len(rows) > 0 {
		resp.NextCursor = nextCursor(hasMore, rows[len(rows)-1].TS)
	}
	c.JSON(http.StatusOK, resp)
}
