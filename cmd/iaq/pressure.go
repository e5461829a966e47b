package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/cmd/iaq/console"
	"github.com/mklimuk/iaq/environment"
	"github.com/mklimuk/iaq/pkg/config"
)

var pressureCmd = cli.Command{
	Name:  "pressure",
	Usage: "BMP280 pressure and temperature sensor",
	Subcommands: []*cli.Command{
		&pressureReadCmd,
		&pressureCalibrationCmd,
	},
}

func withBMP280(c *cli.Context, fn func(ctx context.Context, s *environment.BMP280) error) error {
	return withBus(c, func(ctx context.Context, bus iaq.I2CBus, cfg config.Config) error {
		s, err := newBMP280(ctx, bus, cfg.BMP280)
		if err != nil {
			return console.Exit(console.ExitDevice, "bmp280 initialization error: %s", console.Red(err))
		}
		defer func() {
			if err := s.Close(ctx); err != nil {
				console.Errorf("error closing bmp280: %s", console.Red(err))
			}
		}()
		return fn(ctx, s)
	})
}

var pressureReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "raw", Usage: "also print the uncompensated fixed point values"},
	},
	Action: func(c *cli.Context) error {
		return withBMP280(c, func(ctx context.Context, s *environment.BMP280) error {
			if err := s.Measure(ctx); err != nil {
				return console.Exit(console.ExitDevice, "error reading bmp280: %s", console.Red(err))
			}
			var env physic.Env
			s.Sense(&env)
			console.PInfof(console.PictoThermometer, "%s", console.White(env.Temperature))
			console.PInfof(console.PictoPressure, "%s (%s hPa)", console.White(env.Pressure), console.White(fmt.Sprintf("%.2f", s.Pressure())))
			if c.Bool("raw") {
				t, p := s.RawValues()
				console.Infof("temperature %d (0.01 °C), pressure %d (Q24.8 Pa)", t, p)
			}
			return nil
		})
	},
}

var pressureCalibrationCmd = cli.Command{
	Name:  "calibration",
	Usage: "dump the factory calibration coefficients",
	Action: func(c *cli.Context) error {
		return withBMP280(c, func(ctx context.Context, s *environment.BMP280) error {
			enc := yaml.NewEncoder(console.Writer())
			defer enc.Close()
			if err := enc.Encode(s.Calibration()); err != nil {
				return console.Exit(console.ExitError, "encoding error: %s", console.Red(err))
			}
			return nil
		})
	},
}
