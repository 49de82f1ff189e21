package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nikolayk812/artesano/internal/domain"
)

// statusFor maps an error kind to an HTTP status. Catalog items referenced by an
// order are the caller's input, so their absence is a 400 rather than a 404.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrItemUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrTamper):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAuth):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	h.logFailure(c, status, err)

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": domain.PublicMessage(err),
	})
}

// failCourse answers in the shape the course viewer expects.
func (h *handler) failCourse(c *gin.Context, err error) {
	status := statusFor(err)
	h.logFailure(c, status, err)

	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   domain.PublicMessage(err),
	})
}

func (h *handler) logFailure(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "status", status, "err", err)
		return
	}
	h.log.Debug("request rejected", "path", c.FullPath(), "status", status, "err", err)
}
