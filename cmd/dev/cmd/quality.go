package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

type check struct {
	use   string
	short string
	what  string
	run   func() error
}

var checks = []check{
	{"test", "Run unit tests with the mocked bus", "tests", test.Test},
	{"lint", "Run linting", "linting", test.Lint},
	{"integration-test", "Run integration tests against sensors on a real bus", "integration testing", test.Integ},
}

// QualityCmds returns one command per code quality check.
func QualityCmds() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(checks))
	for _, c := range checks {
		cmds = append(cmds, &cobra.Command{
			Use:   c.use,
			Short: c.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.run(); err != nil {
					return fmt.Errorf("failed to run %s: %w", c.what, err)
				}
				return nil
			},
		})
	}
	return cmds
}
