package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/air"
	"github.com/mklimuk/iaq/cmd/iaq/console"
	"github.com/mklimuk/iaq/pkg/config"
)

var airCmd = cli.Command{
	Name:  "air",
	Usage: "CCS811 air quality sensor",
	Subcommands: []*cli.Command{
		&airReadCmd,
		&airVersionCmd,
		&airBaselineCmd,
		&airEnvCmd,
	},
}

// withCCS811 brings the sensor up and closes it when fn returns.
func withCCS811(c *cli.Context, fn func(ctx context.Context, s *air.CCS811) error) error {
	return withBus(c, func(ctx context.Context, bus iaq.I2CBus, cfg config.Config) error {
		s, err := newCCS811(ctx, bus, cfg.CCS811)
		if err != nil {
			return console.Exit(console.ExitDevice, "ccs811 initialization error: %s", console.Red(err))
		}
		defer func() {
			if err := s.Close(ctx); err != nil {
				console.Errorf("error closing ccs811: %s", console.Red(err))
			}
		}()
		return fn(ctx, s)
	})
}

var airReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "attempts",
			Value: 5,
			Usage: "number of data-ready checks before giving up",
		},
	},
	Action: func(c *cli.Context) error {
		return withCCS811(c, func(ctx context.Context, s *air.CCS811) error {
			var err error
			for i := 0; i < c.Int("attempts"); i++ {
				err = s.ReadSensors(ctx)
				if !errors.Is(err, iaq.ErrNotReady) {
					break
				}
				if err := iaq.Sleep(ctx, s.DriveMode().Interval()); err != nil {
					return console.Exit(console.ExitAborted, "%s", console.Red(err))
				}
			}
			if err != nil {
				return console.Exit(console.ExitDevice, "error reading ccs811: %s", console.Red(err))
			}
			console.PInfof(console.PictoAir, "eCO2 %s ppm", console.White(s.CO2()))
			console.PInfof(console.PictoLeaf, "TVOC %s ppb", console.White(s.TVOC()))
			current, adc := s.RawData()
			console.Infof("raw: %d µA, adc %d", current, adc)
			return nil
		})
	},
}

var airVersionCmd = cli.Command{
	Name: "version",
	Action: func(c *cli.Context) error {
		return withCCS811(c, func(ctx context.Context, s *air.CCS811) error {
			hw := s.HardwareVersion()
			console.Printf("hardware:    %d.%d\n", hw.Major, hw.Minor)
			console.Printf("bootloader:  %s\n", s.BootVersion())
			console.Printf("application: %s\n", s.AppVersion())
			return nil
		})
	},
}

var airBaselineCmd = cli.Command{
	Name:  "baseline",
	Usage: "read or restore the algorithm baseline",
	Subcommands: []*cli.Command{
		{
			Name: "get",
			Action: func(c *cli.Context) error {
				return withCCS811(c, func(ctx context.Context, s *air.CCS811) error {
					baseline, err := s.Baseline(ctx)
					if err != nil {
						return console.Exit(console.ExitDevice, "error reading baseline: %s", console.Red(err))
					}
					console.PInfof(console.PictoKey, "baseline %s", console.White(fmt.Sprintf("%#04x", baseline)))
					return nil
				})
			},
		},
		{
			Name:      "set",
			ArgsUsage: "<baseline>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
			},
			Action: func(c *cli.Context) error {
				value, err := strconv.ParseUint(c.Args().First(), 0, 16)
				if err != nil {
					return console.Exit(console.ExitError, "invalid baseline %q: %s", c.Args().First(), console.Red(err))
				}
				if !c.Bool("yes") {
					ok, err := console.Confirm(fmt.Sprintf("overwrite the ccs811 baseline with %#04x?", value))
					if err != nil || !ok {
						return console.Exit(console.ExitAborted, "%s baseline left unchanged", console.PictoStop)
					}
				}
				return withCCS811(c, func(ctx context.Context, s *air.CCS811) error {
					if err := s.SetBaseline(ctx, uint16(value)); err != nil {
						return console.Exit(console.ExitDevice, "error writing baseline: %s", console.Red(err))
					}
					console.PInfof(console.PictoKey, "baseline set to %s", console.White(fmt.Sprintf("%#04x", value)))
					return nil
				})
			},
		},
	},
}

var airEnvCmd = cli.Command{
	Name:  "env",
	Usage: "write humidity and temperature compensation values",
	Flags: []cli.Flag{
		&cli.Float64Flag{Name: "humidity", Value: 50, Usage: "relative humidity in %"},
		&cli.Float64Flag{Name: "temperature", Value: 25, Usage: "temperature in °C"},
	},
	Action: func(c *cli.Context) error {
		return withCCS811(c, func(ctx context.Context, s *air.CCS811) error {
			if err := s.SetEnvironmentalData(ctx, c.Float64("humidity"), c.Float64("temperature")); err != nil {
				return console.Exit(console.ExitDevice, "error writing environment data: %s", console.Red(err))
			}
			console.Infof("environment set to %.2f %%RH, %.2f °C", c.Float64("humidity"), c.Float64("temperature"))
			return nil
		})
	},
}
