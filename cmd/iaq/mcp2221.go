package main

import (
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/iaq/adapter"
	"github.com/mklimuk/iaq/cmd/iaq/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 USB to I2C adapter",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
	},
}

var indexFlag = &cli.IntFlag{Name: "index", Value: -1, Usage: "adapter index when several are connected"}

func newAdapter(c *cli.Context) *adapter.MCP2221 {
	if i := c.Int("index"); i >= 0 {
		return adapter.NewMCP2221(adapter.WithDeviceIndex(i))
	}
	return adapter.NewMCP2221()
}

func printStatus(status *adapter.MCP2221Status) error {
	enc := yaml.NewEncoder(console.Writer())
	defer enc.Close()
	if err := enc.Encode(status); err != nil {
		return console.Exit(console.ExitError, "encoding error: %s", console.Red(err))
	}
	return nil
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Flags: []cli.Flag{indexFlag},
	Action: func(c *cli.Context) error {
		status, err := newAdapter(c).Status(commandContext(c))
		if err != nil {
			return console.Exit(console.ExitBus, "adapter communication error: %s", console.Red(err))
		}
		return printStatus(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel a stuck transfer and free the bus",
	Flags: []cli.Flag{indexFlag},
	Action: func(c *cli.Context) error {
		status, err := newAdapter(c).ReleaseBus(commandContext(c))
		if err != nil {
			return console.Exit(console.ExitBus, "adapter communication error: %s", console.Red(err))
		}
		return printStatus(status)
	},
}
