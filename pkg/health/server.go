// Package health exposes the administrative HTTP surface: a liveness page
// and a global conversation reset. No authentication, meant for private
// deployments only.
package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/majordomo-ai/majordomo/pkg/logger"
)

const component = "health"

type Server struct {
	httpServer *http.Server
	resetAll   func()
}

// NewServer builds the admin server. resetAll clears every user's
// conversation history when /reset is hit.
func NewServer(host string, port int, resetAll func()) *Server {
	s := &Server{resetAll: resetAll}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/reset", s.handleReset)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("health listen on %s: %w", s.httpServer.Addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF(component, "Admin server failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	logger.InfoCF(component, "Admin server listening", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	logger.DebugC(component, "Home page accessed")
	fmt.Fprint(w, "Bot is running! Send a message to the Telegram bot to start chatting.")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "ok")
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if s.resetAll != nil {
		s.resetAll()
	}
	logger.InfoC(component, "All conversations reset")
	fmt.Fprint(w, "All conversations have been reset.")
}
