package console

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestOutput(t *testing.T) {
	color.NoColor = true
	stdout, stderr := writer, errWriter
	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	t.Cleanup(func() { SetOutput(stdout, stderr) })

	PInfof(PictoHumidity, "%.1f %%RH", 45.5)
	Infof("reading %s", "ccs811")
	Errorf("bus %d", 1)
	Warnf("stale")

	assert.Equal(t, "💧 45.5 %RH\n... reading ccs811\n", out.String())
	assert.Equal(t, "ERROR: bus 1\nWARN: stale\n", errOut.String())
}

func TestExit(t *testing.T) {
	err := Exit(ExitDevice, "no device at %#02x", 0x5B)
	assert.Equal(t, ExitDevice, err.ExitCode())
	assert.Equal(t, "no device at 0x5b", err.Error())
}

func TestIsYes(t *testing.T) {
	for answer, expected := range map[string]bool{
		"y": true, "Yes": true, " YES ": true,
		"": false, "n": false, "no": false, "yep": false,
	} {
		assert.Equal(t, expected, isYes(answer), answer)
	}
}
