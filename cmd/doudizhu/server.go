package main

import (
	"time"

	"github.com/coder/quartz"

	"github.com/moyufeng/doudizhu/cmd/doudizhu/shared"
	"github.com/moyufeng/doudizhu/internal/server"
)

// ServerCmd contains the game server configuration.
type ServerCmd struct {
	Addr   string `kong:"help='Listen address, overrides config'"`
	WSAddr string `kong:"help='WebSocket listen address (e.g. :9998), overrides config'"`
	Config string `kong:"default='doudizhu.hcl',help='HCL config file'"`
	Seed   *int64 `kong:"help='Deterministic RNG seed for dealing (optional)'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *ServerCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address, cfg.Server.Port, err = server.SplitAddr(c.Addr)
		if err != nil {
			return err
		}
	}
	if c.WSAddr != "" {
		cfg.Server.WSAddress = c.WSAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info("using deterministic seed", "seed", seed)
	} else {
		seed = time.Now().UnixNano()
	}

	srv := server.NewServer(cfg, logger, quartz.NewReal(), seed)
	ctx := shared.SetupSignalHandler(logger)
	return srv.Start(ctx)
}
