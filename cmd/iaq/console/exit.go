package console

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Exit codes
const (
	ExitError   = 1
	ExitBus     = 2
	ExitDevice  = 3
	ExitAborted = 4
)

func Exit(code int, msg string, args ...interface{}) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}
