package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/air"
	"github.com/mklimuk/iaq/environment"
	"github.com/mklimuk/iaq/monitor"
	"github.com/mklimuk/iaq/pkg/config"
)

func newCCS811(ctx context.Context, bus iaq.I2CBus, cfg config.CCS811) (*air.CCS811, error) {
	s, err := air.NewCCS811(ctx, bus,
		air.WithAddress(cfg.Address),
		air.WithSettleDelay(cfg.SettleDelay),
		air.WithDriveMode(air.DriveMode(cfg.DriveMode)),
	)
	if err != nil {
		return nil, err
	}
	if cfg.Baseline != 0 {
		if err := s.SetBaseline(ctx, cfg.Baseline); err != nil {
			return nil, fmt.Errorf("could not restore baseline: %w", err)
		}
		slog.Info("ccs811 baseline restored", "baseline", fmt.Sprintf("%#04x", cfg.Baseline))
	}
	return s, nil
}

func newBMP280(ctx context.Context, bus iaq.I2CBus, cfg config.Device) (*environment.BMP280, error) {
	return environment.NewBMP280(ctx, bus,
		environment.WithBMP280Address(cfg.Address),
		environment.WithBMP280SettleDelay(cfg.SettleDelay),
	)
}

func newSi7021(ctx context.Context, bus iaq.I2CBus, cfg config.Si7021) (*environment.Si7021, error) {
	return environment.NewSi7021(ctx, bus,
		environment.WithSi7021Address(cfg.Address),
		environment.WithSi7021SettleDelay(cfg.SettleDelay),
		environment.WithCRCCheck(cfg.CheckCRC),
	)
}

type closer interface {
	Close(ctx context.Context) error
}

// newStation brings up every enabled sensor. A sensor that fails bring-up is
// logged and left out of the station.
func newStation(ctx context.Context, bus iaq.I2CBus, cfg config.Config) (*monitor.Station, []closer) {
	var opts []monitor.StationOpt
	var closers []closer
	if cfg.CCS811.Enabled {
		if s, err := newCCS811(ctx, bus, cfg.CCS811); err != nil {
			slog.Error("ccs811 bring-up failed", "error", err)
		} else {
			opts = append(opts, monitor.WithAirQuality(s))
			closers = append(closers, s)
		}
	}
	if cfg.BMP280.Enabled {
		if s, err := newBMP280(ctx, bus, cfg.BMP280); err != nil {
			slog.Error("bmp280 bring-up failed", "error", err)
		} else {
			opts = append(opts, monitor.WithPressure(s))
			closers = append(closers, s)
		}
	}
	if cfg.Si7021.Enabled {
		if s, err := newSi7021(ctx, bus, cfg.Si7021); err != nil {
			slog.Error("si7021 bring-up failed", "error", err)
		} else {
			opts = append(opts, monitor.WithHumidity(s))
			closers = append(closers, s)
		}
	}
	return monitor.NewStation(opts...), closers
}

// newMockStation simulates a station drifting around typical indoor values.
func newMockStation(seed int64) *monitor.Station {
	rng := rand.New(rand.NewSource(seed))
	drift := func(base, spread float64) func(context.Context) (float64, error) {
		return func(ctx context.Context) (float64, error) {
			return base + (rng.Float64()-0.5)*spread, ctx.Err()
		}
	}
	ccs := air.NewMockCCS811(func(ctx context.Context) (uint16, uint16, error) {
		return uint16(400 + rng.Intn(600)), uint16(rng.Intn(300)), ctx.Err()
	})
	return monitor.NewStation(
		monitor.WithAirQuality(ccs),
		monitor.WithPressure(environment.NewMockPressureSensor(drift(21, 1), drift(1006, 4))),
		monitor.WithHumidity(environment.NewMockHumiditySensor(drift(21.5, 1), drift(45, 6))),
	)
}
