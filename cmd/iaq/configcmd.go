package main

import (
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/iaq/cmd/iaq/console"
	"github.com/mklimuk/iaq/pkg/config"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "station configuration",
	Subcommands: []*cli.Command{
		{
			Name:  "show",
			Usage: "print the effective configuration",
			Action: func(c *cli.Context) error {
				cfg, err := loadConfig(c)
				if err != nil {
					return err
				}
				enc := yaml.NewEncoder(console.Writer())
				defer enc.Close()
				if err := enc.Encode(cfg); err != nil {
					return console.Exit(console.ExitError, "encoding error: %s", console.Red(err))
				}
				return nil
			},
		},
		{
			Name:      "init",
			Usage:     "write the default configuration",
			ArgsUsage: "<path>",
			Action: func(c *cli.Context) error {
				path := c.Args().First()
				if path == "" {
					path = "iaq.yaml"
				}
				if err := config.Default().Save(path); err != nil {
					return console.Exit(console.ExitError, "%s", console.Red(err))
				}
				console.Infof("configuration written to %s", path)
				return nil
			},
		},
	},
}
