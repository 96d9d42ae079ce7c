package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arledger/backend/internal/interfaces/http/dto"
)

// BodyLimit rejects requests whose declared length exceeds maxBytes and
// caps streaming bodies at the same size.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse("REQUEST_TOO_LARGE", "Request body exceeds maximum allowed size"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
