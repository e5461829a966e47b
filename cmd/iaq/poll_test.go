package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/iaq/cmd/iaq/console"
)

func TestPoll_MockStation(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	console.SetOutput(&out, &out)

	err := poll(context.Background(), newMockStation(1), time.Millisecond, 2)
	require.ErrorIs(t, err, context.Canceled)

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "eCO2"))
	assert.Equal(t, 2, strings.Count(text, "pressure"))
	assert.Equal(t, 2, strings.Count(text, "humidity"))
	assert.Equal(t, 2, strings.Count(text, "temperature"))
}

func TestRun_ConfigShow(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	console.SetOutput(&out, &out)

	code := run([]string{"iaq", "--adapter", "mock", "config", "show"})
	assert.Zero(t, code)
	assert.Contains(t, out.String(), "adapter: mock")
	assert.Contains(t, out.String(), "interval: 5s")
}

func TestRun_InvalidAdapter(t *testing.T) {
	code := run([]string{"iaq", "--adapter", "serial", "config", "show"})
	assert.Equal(t, console.ExitError, code)
}
