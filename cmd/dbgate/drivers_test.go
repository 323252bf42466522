package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dbgate/pkg/config"
)

func TestNewDriver(t *testing.T) {
	for _, name := range config.Drivers {
		t.Run(name, func(t *testing.T) {
			d, err := newDriver(name)
			require.NoError(t, err)
			assert.Equal(t, name, d.Name())
		})
	}

	_, err := newDriver("cassandra")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orientdb")
}

func TestVersionAndDriversCommands(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "dbgate dev"))

	out.Reset()
	rootCmd.SetArgs([]string{"drivers"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, strings.Join(config.Drivers, "\n")+"\n", out.String())
}
