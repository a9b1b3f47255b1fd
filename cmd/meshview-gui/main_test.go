package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { configPath, backend, format = "", "", "auto" })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRootFlags(t *testing.T) {
	for _, name := range []string{"config", "backend", "format"} {
		assert.NotNil(t, rootCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "f", rootCmd.Flags().Lookup("format").Shorthand)
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "meshview-gui version")
}

func TestRejectsBadArguments(t *testing.T) {
	_, err := execute(t, "a.stl", "b.stl")
	assert.Error(t, err)

	// The format is checked before any window is opened
	_, err = execute(t, "--format", "obj", "part.obj")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
