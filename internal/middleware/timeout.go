package middleware

import (
	"net/http"
	"time"

	"adoptify-web/pkg/apierror"
)

// Timeout bounds the whole handler, upstream calls included.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	message := `{"success":false,"error":{"code":"` + apierror.CodeRequestTimeout + `","message":"request timed out, try again"}}`

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}
