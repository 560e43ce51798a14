package httpserver

import (
	"net/http"
	"time"
)

// New builds the admissions API server. ReadHeaderTimeout bounds slow
// clients; per-request deadlines are handled by the router middleware.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
