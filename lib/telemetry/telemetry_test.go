package telemetry

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupFromEnvWithoutConfig(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() {
		os.Chdir(wd)
	})

	tel, err := SetupFromEnv(context.Background(), "test:telemetry")
	require.NoError(t, err)
	require.False(t, tel.Enabled())
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetupForTestingOnlyOnce(t *testing.T) {
	cleanup := SetupForTesting(t, "test:telemetry-once")
	again := SetupForTesting(t, "test:telemetry-once")
	again()
	cleanup()
}
