// Package health serves the liveness check.
package health

import (
	"encoding/json"
	"net/http"
)

// NewHandler returns a handler answering {"status":"ok"}.
func NewHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}
