package cmd

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mottledev/marionette/internal/config"
)

func TestRunSimulation_CompletesRequestedFrames(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.SetSimulationFrames(5)
	cfg.SetSimulationFrameRate(10000) // keep the rate limiter out of the way
	cfg.Sim.TelemetryEvery = 2

	c := &cobra.Command{}
	c.SetContext(context.Background())

	require.NoError(t, runSimulation(c, cfg))
}

func TestRunSimulation_StopsOnCancelledContext(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.SetSimulationFrames(0) // would run forever
	cfg.SetSimulationFrameRate(60)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &cobra.Command{}
	c.SetContext(ctx)

	require.NoError(t, runSimulation(c, cfg), "interruption is a clean exit")
}

func TestNewSimulateCmd_Flags(t *testing.T) {
	c := newSimulateCmd()
	for _, name := range []string{"frames", "rate", "speed", "seed", "workers"} {
		assert.NotNil(t, c.Flags().Lookup(name), "missing flag %s", name)
	}
}
