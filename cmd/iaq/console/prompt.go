package console

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"
)

// Confirm asks a yes/no question. No is the default; only "y" or "yes" confirm.
func Confirm(question string) (bool, error) {
	answer, err := ask(fmt.Sprintf("%s [y/N]: ", question))
	if err != nil {
		return false, err
	}
	return isYes(answer), nil
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func ask(prompt string) (string, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: prompt,
		Stdout: writer,
		Stderr: errWriter,
	})
	if err != nil {
		return "", err
	}
	defer func() { _ = rl.Close() }()
	return rl.Readline()
}
