package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes caps request bodies at 1 MB.
const DefaultMaxBodyBytes = 1 << 20

// LimitBody rejects request bodies larger than maxBytes once a handler reads
// past the limit.
func LimitBody(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
