package server

import (
	"bytes"
	"errors"
	"net"
	"strings"

	"github.com/gorilla/websocket"
)

// maxCommandBytes is the inbound chunk size: clients send one command per
// write, not newline-terminated, so a command is whatever one read returns.
const maxCommandBytes = 1024

var errBadHandshake = errors.New("invalid intake handshake")

// Transport is the byte pipe behind a Session. Two implementations: raw TCP
// speaking the classic protocol, and WebSocket where one text message is one
// frame or command.
type Transport interface {
	// Handshake reads the intake lines: room name, then player name.
	Handshake() (room, player string, err error)
	// ReadCommand blocks for the next whitespace-trimmed client command.
	ReadCommand() (string, error)
	// WriteFrame sends one encoded, newline-terminated frame.
	WriteFrame(line []byte) error
	Close() error
	RemoteAddr() net.Addr
}

type tcpTransport struct {
	conn net.Conn
	buf  []byte
}

// NewTCPTransport wraps a TCP connection in the classic chunked protocol.
func NewTCPTransport(conn net.Conn) Transport {
	return &tcpTransport{conn: conn, buf: make([]byte, maxCommandBytes)}
}

func (t *tcpTransport) Handshake() (string, string, error) {
	// The handshake arrives as one write: "room\nplayer". Unlike the
	// historical 20-byte read this accepts full-length multi-byte names.
	n, err := t.conn.Read(t.buf)
	if err != nil {
		return "", "", err
	}
	parts := strings.SplitN(strings.TrimSpace(string(t.buf[:n])), "\n", 2)
	if len(parts) != 2 {
		return "", "", errBadHandshake
	}
	room := strings.TrimSpace(parts[0])
	player := strings.TrimSpace(parts[1])
	if room == "" || player == "" {
		return "", "", errBadHandshake
	}
	return room, player, nil
}

func (t *tcpTransport) ReadCommand() (string, error) {
	n, err := t.conn.Read(t.buf)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(t.buf[:n])), nil
}

func (t *tcpTransport) WriteFrame(line []byte) error {
	_, err := t.conn.Write(line)
	return err
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}

type wsTransport struct {
	conn *websocket.Conn
}

// NewWSTransport wraps a WebSocket connection. Frames are sent without the
// trailing newline since the message boundary already delimits them.
func NewWSTransport(conn *websocket.Conn) Transport {
	return &wsTransport{conn: conn}
}

func (t *wsTransport) readText() (string, error) {
	for {
		mt, data, err := t.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if mt == websocket.TextMessage {
			return strings.TrimSpace(string(data)), nil
		}
	}
}

func (t *wsTransport) Handshake() (string, string, error) {
	hs, err := t.readText()
	if err != nil {
		return "", "", err
	}
	parts := strings.SplitN(hs, "\n", 2)
	if len(parts) != 2 {
		return "", "", errBadHandshake
	}
	room := strings.TrimSpace(parts[0])
	player := strings.TrimSpace(parts[1])
	if room == "" || player == "" {
		return "", "", errBadHandshake
	}
	return room, player, nil
}

func (t *wsTransport) ReadCommand() (string, error) {
	return t.readText()
}

func (t *wsTransport) WriteFrame(line []byte) error {
	return t.conn.WriteMessage(websocket.TextMessage, bytes.TrimSuffix(line, []byte("\n")))
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

func (t *wsTransport) RemoteAddr() net.Addr {
	return t.conn.RemoteAddr()
}
