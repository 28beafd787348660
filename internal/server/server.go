// Package server implements the Dou Dizhu game server: TCP (and optional
// WebSocket) intake, per-room session grouping, and the per-room round
// engine speaking the newline-JSON protocol.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/moyufeng/doudizhu/internal/randutil"
)

// Server accepts connections, performs the intake handshake, and routes
// sessions into rooms by name. Rooms persist for the process lifetime.
type Server struct {
	cfg      *Config
	logger   *log.Logger
	clock    quartz.Clock
	upgrader websocket.Upgrader

	seedBase int64

	mu       sync.Mutex
	rooms    map[string]*Room
	roomSeq  int64
}

// NewServer creates a server. seed makes every room's shuffles reproducible;
// each room derives its own RNG so concurrent rooms never share one.
func NewServer(cfg *Config, logger *log.Logger, clock quartz.Clock, seed int64) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger.WithPrefix("server"),
		clock:  clock,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		seedBase: seed,
		rooms:    make(map[string]*Room),
	}
}

// Start runs the TCP accept loop, and the WebSocket intake when configured,
// until ctx is cancelled. It returns a bind failure immediately.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.TCPAddr())
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.TCPAddr(), err)
	}
	s.logger.Info("listening", "addr", s.cfg.TCPAddr())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.acceptLoop(ctx, ln)
	})
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})

	if s.cfg.Server.WSAddress != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", s.handleWebSocket)
		httpSrv := &http.Server{Addr: s.cfg.Server.WSAddress, Handler: mux}

		s.logger.Info("websocket intake enabled", "addr", s.cfg.Server.WSAddress)
		g.Go(func() error {
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	err = g.Wait()
	if errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}
		go s.intake(NewTCPTransport(conn))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	go s.intake(NewWSTransport(conn))
}

// intake runs the handshake and seats the session. A bad client never takes
// the listener down: every failure is logged and the connection dropped.
func (s *Server) intake(t Transport) {
	roomName, playerName, err := t.Handshake()
	if err != nil {
		s.logger.Warn("intake handshake failed", "remote", t.RemoteAddr(), "err", err)
		_ = t.Close()
		return
	}

	sess := NewSession(playerName, t, s.logger, s.clock)
	room := s.room(roomName)
	if err := room.Join(sess); err != nil {
		s.logger.Info("join rejected", "room", roomName, "player", playerName, "err", err)
		sess.Close()
	}
}

// room returns the room registered under name, creating it on first use.
func (s *Server) room(name string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rm, ok := s.rooms[name]; ok {
		return rm
	}
	s.roomSeq++
	rm := NewRoom(name, s.logger, s.clock, randutil.New(s.seedBase+s.roomSeq))
	s.rooms[name] = rm
	return rm
}

// Rooms returns the number of rooms created so far.
func (s *Server) Rooms() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
