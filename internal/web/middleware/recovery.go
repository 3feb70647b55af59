package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/conduit-lang/projector/internal/web/response"
)

// Recovery turns panics into 500 JSON errors and logs them with a stack trace
func Recovery(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}

					err, ok := v.(error)
					if !ok {
						err = fmt.Errorf("panic: %v", v)
					}
					logger.Error("panic recovered",
						zap.String("request_id", GetRequestID(r.Context())),
						zap.String("path", r.URL.Path),
						zap.Error(err),
						zap.ByteString("stack", debug.Stack()),
					)
					response.RenderInternalError(w, nil)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
