package middleware

import "net/http"

// APIKey returns middleware that requires the X-API-Key header to match the
// configured service key. An empty configured key disables the check.
func APIKey(serviceKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if serviceKey != "" && r.Header.Get("X-API-Key") != serviceKey {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
