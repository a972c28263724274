package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server. Write timeout sits above the 30s handler
// timeout so the middleware can still answer with an error envelope.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    64 << 10,
	}
}
