package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/mklimuk/iaq/cmd/iaq/console"
	"github.com/mklimuk/iaq/monitor"
	"github.com/mklimuk/iaq/pkg/config"
)

var pollCmd = cli.Command{
	Name:  "poll",
	Usage: "sample all enabled sensors periodically",
	Flags: []cli.Flag{
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "sampling interval; overrides the config file",
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "stop after n readings (0 polls until interrupted)",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		if i := c.Duration("interval"); i > 0 {
			cfg.Interval = i
		}
		ctx, stop := signal.NotifyContext(commandContext(c), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var station *monitor.Station
		if cfg.Bus.Adapter == config.AdapterMock {
			station = newMockStation(time.Now().UnixNano())
		} else {
			bus, closeBus, err := openBus(ctx, cfg.Bus)
			if err != nil {
				return console.Exit(console.ExitBus, "%s", console.Red(err))
			}
			defer closeBus()
			var closers []closer
			station, closers = newStation(ctx, bus, cfg)
			defer func() {
				for _, s := range closers {
					if err := s.Close(context.Background()); err != nil {
						console.Errorf("error closing sensor: %s", console.Red(err))
					}
				}
			}()
		}

		err = poll(ctx, station, cfg.Interval, c.Int("count"))
		if err != nil && !errors.Is(err, context.Canceled) {
			return console.Exit(console.ExitError, "polling error: %s", console.Red(err))
		}
		return nil
	},
}

// poll runs the station and prints its readings from a separate goroutine so a
// slow terminal never delays sampling.
func poll(ctx context.Context, station *monitor.Station, interval time.Duration, count int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	readings := make(chan monitor.Reading, 1)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(readings)
		return station.Run(ctx, interval, func(r monitor.Reading) {
			select {
			case readings <- r:
			case <-ctx.Done():
			}
		})
	})
	g.Go(func() error {
		printed := 0
		for r := range readings {
			printReading(r)
			printed++
			if count > 0 && printed >= count {
				cancel()
			}
		}
		return nil
	})
	return g.Wait()
}

func printReading(r monitor.Reading) {
	console.Printf("%s\n", console.Bold(r.Time.Format(time.DateTime)))
	if r.HasAirQuality {
		console.PInfof(console.PictoAir, "eCO2 %s ppm", console.White(r.CO2))
		console.PInfof(console.PictoLeaf, "TVOC %s ppb", console.White(r.TVOC))
	}
	if r.HasPressure {
		console.PInfof(console.PictoPressure, "pressure %s hPa", console.White(formatFloat(r.Pressure)))
	}
	if r.HasHumidity {
		console.PInfof(console.PictoHumidity, "humidity %s %%RH", console.White(formatFloat(r.Humidity)))
	}
	if t, ok := r.Temperature(); ok {
		console.PInfof(console.PictoThermometer, "temperature %s °C", console.White(formatFloat(t)))
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
