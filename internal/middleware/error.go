package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/servicebook/pkg/errors"
	"github.com/jwalitptl/servicebook/pkg/httputil"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		status := errors.StatusOf(lastErr)

		event := log.Debug()
		if status >= 500 {
			event = log.Error()
		}
		event.
			Err(lastErr).
			Str("request_id", c.GetString(ContextRequestID)).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Str("outcome", errors.Outcome(lastErr)).
			Msg("Request error")

		httputil.RespondWithError(c, lastErr)
	}
}
