// Package middleware provides HTTP middleware components.
package middleware

import (
	"errors"
	"fmt"
	"net"
	"os"
	"runtime/debug"
	"syscall"

	"github.com/gin-gonic/gin"

	"flowdesk/internal/core/apperror"
	"flowdesk/pkg/logger"
)

// Recovery turns a panic into a rendered 500.
// The stack goes to the log, never to the client. A panic caused by the client
// hanging up is logged without a stack and nothing is written back.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			ctx := c.Request.Context()

			if err, ok := rec.(error); ok && isBrokenConnection(err) {
				logger.Warn(ctx, "client connection lost",
					"route", c.FullPath(),
					"error", err,
				)
				_ = c.Error(err)
				c.Abort()
				return
			}

			logger.Error(ctx, "panic recovered",
				"method", c.Request.Method,
				"route", c.FullPath(),
				"error", rec,
				"stack", string(debug.Stack()),
			)
			appErr := apperror.NewInternal(fmt.Errorf("panic: %v", rec)).
				WithDetail("request_id", c.GetString("request_id"))
			_ = c.Error(appErr)
			c.Abort()
			// The panic unwound past ErrorHandler.
			if !c.Writer.Written() {
				RenderError(c, appErr)
			}
		}()
		c.Next()
	}
}

func isBrokenConnection(err error) bool {
	var opErr *net.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	var sysErr *os.SyscallError
	if errors.As(opErr, &sysErr) {
		return errors.Is(sysErr.Err, syscall.EPIPE) || errors.Is(sysErr.Err, syscall.ECONNRESET)
	}
	return false
}
