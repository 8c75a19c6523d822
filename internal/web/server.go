// Package web exposes the dispatcher status to the presentation layer over
// a local SSE stream.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Web3Tester2023/swap3/internal/domain"
)

// Server exposes HTTP endpoints serving a minimal HTML page and an SSE
// stream of status updates.
type Server struct {
	Addr string

	mu   sync.Mutex
	last domain.Status
	subs map[chan domain.Status]struct{}
}

// NewServer creates a new status stream server.
func NewServer(addr string) *Server {
	return &Server{
		Addr: addr,
		subs: make(map[chan domain.Status]struct{}),
	}
}

// Publish pushes a status update to every connected stream. Safe to use as
// the dispatcher's OnStatus callback.
func (s *Server) Publish(status domain.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = status
	for ch := range s.subs {
		select {
		case ch <- status:
		default: // drop for slow consumers, the next update supersedes
		}
	}
}

func (s *Server) subscribe() (chan domain.Status, func()) {
	ch := make(chan domain.Status, 8)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- s.last
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
	}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status/stream", s.handleStatusStream)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := s.subscribe()
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case status := <-ch:
			payload, err := json.Marshal(status)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>swap3 vault status</title></head>
<body>
<h3>Vault transaction status</h3>
<pre id="status">waiting...</pre>
<script>
const es = new EventSource("/status/stream");
es.onmessage = (e) => {
  document.getElementById("status").textContent = JSON.stringify(JSON.parse(e.data), null, 2);
};
</script>
</body>
</html>`
