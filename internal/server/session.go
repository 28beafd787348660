package server

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/moyufeng/doudizhu/internal/protocol"
)

// heartbeatInterval paces the empty keep-alive frames each session emits so
// clients can detect dead connections.
const heartbeatInterval = 5 * time.Second

// Session is one connected player: it owns the transport, serializes frame
// writes, and runs the heartbeat until closed. Any transport error closes
// the session; the room notices via the returned error.
type Session struct {
	player    string
	transport Transport
	logger    *log.Logger
	clock     quartz.Clock

	ctx       context.Context
	cancel    context.CancelFunc
	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewSession wraps a handshaken transport and starts its heartbeat.
func NewSession(player string, t Transport, logger *log.Logger, clock quartz.Clock) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		player:    player,
		transport: t,
		logger:    logger.WithPrefix("session").With("player", player),
		clock:     clock,
		ctx:       ctx,
		cancel:    cancel,
	}
	go s.heartbeat()
	return s
}

// Player returns the display name given at intake.
func (s *Session) Player() string { return s.player }

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Send emits one frame. A write error closes the session and is returned so
// the caller can detach the seat.
func (s *Session) Send(code int, data any) error {
	frame, err := protocol.NewFrame(code, data, s.player)
	if err != nil {
		return err
	}
	line, err := frame.Encode()
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.transport.WriteFrame(line); err != nil {
		s.Close()
		return err
	}
	return nil
}

// SendUpdate emits a partial game-state frame.
func (s *Session) SendUpdate(u *protocol.Update) error {
	return s.Send(protocol.CodeState, u)
}

// SendInfo emits a popup frame.
func (s *Session) SendInfo(message string) error {
	return s.Send(protocol.CodeInfo, message)
}

// SendStop emits the end-of-round frame.
func (s *Session) SendStop() error {
	return s.Send(protocol.CodeStop, nil)
}

// ReadCommand blocks for the player's next command. Commands with an
// interior newline are bounced with a format error and re-read. A read
// error closes the session.
func (s *Session) ReadCommand() (string, error) {
	for {
		cmd, err := s.transport.ReadCommand()
		if err != nil {
			s.Close()
			return "", err
		}
		if strings.Contains(cmd, "\n") {
			if err := s.SendUpdate(&protocol.Update{TopMessage: "格式错误，请重新输入"}); err != nil {
				return "", err
			}
			continue
		}
		return cmd, nil
	}
}

// Close shuts the session down exactly once: the heartbeat stops and the
// transport is closed, unblocking any pending read.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.transport.Close()
		s.logger.Debug("session closed")
	})
}

func (s *Session) heartbeat() {
	ticker := s.clock.NewTicker(heartbeatInterval, "heartbeat")
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.SendUpdate(&protocol.Update{}); err != nil {
				return
			}
		}
	}
}
