// ABOUTME: WebSocket PCM receiver
// ABOUTME: Accepts one sender at /pcm: a JSON header then binary audio packets
package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/glebpom/shairport/pkg/audio/output"
	"github.com/gorilla/websocket"
)

// DefaultPath is the websocket endpoint
const DefaultPath = "/pcm"

// maxPacket bounds a single websocket message (one second of audio at 48kHz)
const maxPacket = 48000 * 4

// WSConfig holds websocket receiver configuration
type WSConfig struct {
	// Addr is the listen address, e.g. ":8927"
	Addr string

	// Path is the endpoint (default: /pcm)
	Path string
}

// WSServer receives PCM over websocket
type WSServer struct {
	cfg      WSConfig
	sink     Sink
	guard    *Guard
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// NewWSServer creates a websocket receiver feeding sink
func NewWSServer(cfg WSConfig, sink Sink, guard *Guard) *WSServer {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if guard == nil {
		guard = &Guard{}
	}

	s := &WSServer{
		cfg:   cfg,
		sink:  sink,
		guard: guard,
		upgrader: websocket.Upgrader{
			ReadBufferSize: 16 * 1024,
			// senders are non-browser tools on a trusted network
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc(cfg.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the endpoint
func (s *WSServer) Handler() http.Handler {
	return s.mux
}

// Path returns the endpoint path
func (s *WSServer) Path() string {
	return s.cfg.Path
}

// Serve listens on Addr until ctx is done
func (s *WSServer) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done
func (s *WSServer) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		log.Printf("WebSocket receiver listening on ws://%s%s", ln.Addr(), s.cfg.Path)
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errChan:
		return fmt.Errorf("websocket receiver failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("WebSocket receiver shutdown error: %v", err)
	}
	return nil
}

func (s *WSServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxPacket)

	log.Printf("New sender connection from %s", r.RemoteAddr)

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading stream header: %v", err)
		return
	}
	if msgType != websocket.TextMessage {
		closeWith(conn, websocket.CloseProtocolError, "expected JSON stream header")
		return
	}

	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		closeWith(conn, websocket.CloseProtocolError, "malformed stream header")
		return
	}

	sess, err := openSession(s.sink, s.guard, r.RemoteAddr, h)
	if err != nil {
		log.Printf("Rejecting sender %s: %v", r.RemoteAddr, err)
		closeWith(conn, closeCode(err), err.Error())
		return
	}
	defer sess.close(r.Context())

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		if msgType != websocket.BinaryMessage {
			log.Printf("Stream %s: ignoring text message after header", sess.id)
			continue
		}

		if err := sess.feed(data); err != nil {
			log.Printf("Stream %s: %v", sess.id, err)
			closeWith(conn, closeCode(err), err.Error())
			return
		}
	}
}

// closeCode maps a session error onto a websocket close code
func closeCode(err error) int {
	switch {
	case errors.Is(err, output.ErrUnsupportedRate):
		return websocket.ClosePolicyViolation
	case errors.Is(err, ErrBusy):
		return websocket.CloseTryAgainLater
	case errors.Is(err, ErrBadHeader), errors.Is(err, output.ErrPartialFrame):
		return websocket.CloseUnsupportedData
	default:
		return websocket.CloseInternalServerErr
	}
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	// control frame payloads are limited to 125 bytes
	if len(reason) > 123 {
		reason = reason[:123]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		log.Printf("Error sending close: %v", err)
	}
}
