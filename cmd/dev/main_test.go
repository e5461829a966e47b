package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmd(t *testing.T) {
	root := rootCmd()
	assert.Contains(t, root.Long, "nanopi, rpi")

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"build", "test", "lint", "integration-test"})

	build, _, err := root.Find([]string{"build"})
	assert.NoError(t, err)
	assert.NotNil(t, build.Flag("target"))
}
