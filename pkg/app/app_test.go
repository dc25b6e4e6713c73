package app

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			require.NoError(t, os.Unsetenv(k))
			t.Cleanup(func() { os.Setenv(k, v) })
		}
	}
}

func TestNew(t *testing.T) {
	unsetEnv(t, "LOG_LEVEL", "S3_FAILURE_URL", "SOLUTION_ID")
	t.Setenv("SolutionID", "SO0143")

	a, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, "SO0143", a.Config.AlarmSolutionID)
	assert.NotNil(t, a.Logger)
	assert.NotNil(t, a.Transformer)
	assert.Nil(t, a.Archive(context.Background()))
}

func TestNew_BadLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "LOUD")

	_, err := New(nil)
	assert.Error(t, err)
}
