package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/iaq"
	"github.com/mklimuk/iaq/cmd/iaq/console"
	"github.com/mklimuk/iaq/environment"
	"github.com/mklimuk/iaq/pkg/config"
)

var humidityCmd = cli.Command{
	Name:  "humidity",
	Usage: "Si7021 humidity and temperature sensor",
	Subcommands: []*cli.Command{
		&humidityReadCmd,
		&humidityInfoCmd,
	},
}

func withSi7021(c *cli.Context, fn func(ctx context.Context, s *environment.Si7021) error) error {
	return withBus(c, func(ctx context.Context, bus iaq.I2CBus, cfg config.Config) error {
		if c.IsSet("no-crc") {
			cfg.Si7021.CheckCRC = !c.Bool("no-crc")
		}
		s, err := newSi7021(ctx, bus, cfg.Si7021)
		if err != nil {
			return console.Exit(console.ExitDevice, "si7021 initialization error: %s", console.Red(err))
		}
		defer func() {
			if err := s.Close(ctx); err != nil {
				console.Errorf("error closing si7021: %s", console.Red(err))
			}
		}()
		return fn(ctx, s)
	})
}

var noCRCFlag = &cli.BoolFlag{Name: "no-crc", Usage: "accept payloads without verifying their checksum"}

var humidityReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Flags:   []cli.Flag{noCRCFlag},
	Action: func(c *cli.Context) error {
		return withSi7021(c, func(ctx context.Context, s *environment.Si7021) error {
			if err := s.Measure(ctx); err != nil {
				return console.Exit(console.ExitDevice, "error reading si7021: %s", console.Red(err))
			}
			console.PInfof(console.PictoHumidity, "%s %%RH", console.White(fmt.Sprintf("%.2f", s.Humidity())))
			console.PInfof(console.PictoThermometer, "%s °C", console.White(fmt.Sprintf("%.2f", s.Temperature())))
			return nil
		})
	},
}

var humidityInfoCmd = cli.Command{
	Name:  "info",
	Usage: "print the serial number and firmware version",
	Flags: []cli.Flag{noCRCFlag},
	Action: func(c *cli.Context) error {
		return withSi7021(c, func(ctx context.Context, s *environment.Si7021) error {
			console.PInfof(console.PictoPin, "serial %s", console.White(fmt.Sprintf("%016X", s.Serial())))
			console.Printf("firmware: %s\n", s.FirmwareVersion())
			return nil
		})
	},
}
