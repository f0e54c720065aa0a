package server

import "net/http"

// HTTPServer exposes the wrapped http.Server for testing.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}
