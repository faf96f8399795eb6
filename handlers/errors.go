package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/csvcodec"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/models"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/normalize"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/optimizer"
	"github.com/harshdeshmukh21/Optimizing-Traffic-Signal-Intersections/session"
)

// respondError maps pipeline errors to a status and a JSON error body. A
// remote optimizer error keeps its status and body.
func respondError(c *gin.Context, err error) {
	var remote *optimizer.RemoteError
	switch {
	case errors.As(err, &remote):
		c.JSON(remote.StatusCode, gin.H{
			"error":  "optimizer error",
			"status": remote.StatusCode,
			"data":   string(remote.Body),
		})
	case errors.Is(err, models.ErrInvalidRequest),
		errors.Is(err, optimizer.ErrFileRead),
		errors.Is(err, csvcodec.ErrEmptyInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, normalize.ErrNoValidData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, optimizer.ErrMalformedResponse):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, optimizer.ErrUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "optimizer not running or not accessible", "details": err.Error()})
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrQuotaExceeded):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "optimizer timed out"})
	default:
		log.Printf("request failed path=%s err=%v", c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process request", "details": err.Error()})
	}
}

// tooLarge reports whether err came from a body cut off by
// http.MaxBytesReader.
func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

func respondTooLarge(c *gin.Context, limit int64) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error": fmt.Sprintf("upload exceeds the %d MB limit", limit>>20),
	})
}
