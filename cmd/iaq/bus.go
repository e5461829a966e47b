package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/adapter"
	"github.com/mklimuk/iaq/cmd/iaq/console"
	"github.com/mklimuk/iaq/i2c"
	"github.com/mklimuk/iaq/pkg/config"
	"github.com/mklimuk/iaq/snsctx"
)

// loadConfig reads the config file when given and applies the global flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, console.Exit(console.ExitError, "configuration error: %s", console.Red(err))
		}
	}
	if a := c.String("adapter"); a != "" {
		cfg.Bus.Adapter = a
	}
	if d := c.String("device"); d != "" {
		cfg.Bus.Device = d
	}
	if err := cfg.Validate(); err != nil {
		return cfg, console.Exit(console.ExitError, "configuration error: %s", console.Red(err))
	}
	return cfg, nil
}

func commandContext(c *cli.Context) context.Context {
	return snsctx.SetVerbose(c.Context, c.Bool("verbose"))
}

// openBus returns the transport selected in cfg and a function closing it.
func openBus(ctx context.Context, cfg config.Bus) (iaq.I2CBus, func(), error) {
	speed, err := cfg.Frequency()
	if err != nil {
		return nil, nil, err
	}
	switch cfg.Adapter {
	case config.AdapterMCP2221:
		ad := adapter.NewMCP2221()
		if speed > 0 {
			if err := ad.SetSpeed(ctx, speed); err != nil {
				return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
			}
		}
		return ad, func() {}, nil
	case config.AdapterGobot:
		npi := nanopi.NewNeoAdaptor()
		if err := npi.Connect(); err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		bus := i2c.NewGobotBus(npi, cfg.Number)
		return bus, func() {
			if err := bus.Release(context.Background()); err != nil {
				slog.Error("could not release gobot bus", "error", err)
			}
			if err := npi.Finalize(); err != nil {
				slog.Error("could not finalize adaptor", "error", err)
			}
		}, nil
	case config.AdapterPeriph:
		bus, err := i2c.NewGenericBus(cfg.Device)
		if err != nil {
			return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		if speed > 0 {
			if err := bus.SetSpeed(speed); err != nil {
				_ = bus.Close()
				return nil, nil, err
			}
		}
		return bus, func() {
			if err := bus.Close(); err != nil {
				console.Errorf("error closing bus: %s", console.Red(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("adapter %q has no bus", cfg.Adapter)
	}
}

// withBus loads the configuration, opens the bus and runs fn with both.
func withBus(c *cli.Context, fn func(ctx context.Context, bus iaq.I2CBus, cfg config.Config) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := commandContext(c)
	bus, closeBus, err := openBus(ctx, cfg.Bus)
	if err != nil {
		return console.Exit(console.ExitBus, "%s", console.Red(err))
	}
	defer closeBus()
	return fn(ctx, bus, cfg)
}
