package main

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/moyufeng/doudizhu/cmd/doudizhu/shared"
	"github.com/moyufeng/doudizhu/internal/tui"
)

// ClientCmd contains the interactive client configuration.
type ClientCmd struct {
	Host  string `kong:"arg,optional,default='127.0.0.1',help='Server host'"`
	Port  int    `kong:"default='9999',help='Server port'"`
	Room  string `kong:"required,help='Room name to join'"`
	Name  string `kong:"required,help='Player name (2-10 characters)'"`
	Debug bool   `kong:"help='Enable debug logging'"`
	LogTo string `kong:"default='doudizhu-client.log',help='Debug log file'"`
}

func (c *ClientCmd) Run() error {
	if n := utf8.RuneCountInString(c.Name); n < 2 || n > 10 {
		return fmt.Errorf("player name must be 2-10 characters, got %d", n)
	}

	// Stderr would scribble over the alternate screen, so logs are dropped
	// unless --debug routes them to a file.
	logWriter := io.Writer(io.Discard)
	if c.Debug {
		f, err := os.OpenFile(c.LogTo, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logWriter = f
	}
	logger := shared.SetupLoggerTo(logWriter, c.Debug)

	return tui.Run(c.Host, c.Port, c.Room, c.Name, logger)
}
