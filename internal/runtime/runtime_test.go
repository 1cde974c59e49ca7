package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/mcpsheets/config"
)

func TestControllerAcquireRelease(t *testing.T) {
	limits := NewLimits(1, 1)
	controller := NewController(limits)

	require.Equal(t, limits, controller.LimitsSnapshot())

	require.NoError(t, controller.AcquireRequest(context.Background()))
	controller.ReleaseRequest()

	require.NoError(t, controller.AcquireFile(context.Background()))
	controller.ReleaseFile()
}

func TestOpenFileCapacityBlocks(t *testing.T) {
	controller := NewController(NewLimits(2, 1))
	require.NoError(t, controller.AcquireFile(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, controller.AcquireFile(ctx), context.DeadlineExceeded)

	controller.ReleaseFile()
	require.NoError(t, controller.AcquireFile(context.Background()))
	controller.ReleaseFile()
}

func TestLimitsFromSettings(t *testing.T) {
	l := LimitsFromSettings(config.Settings{MaxConcurrent: 3, OperationTimeout: time.Second})
	require.Equal(t, 3, l.MaxConcurrentRequests)
	require.Equal(t, config.DefaultMaxOpenFiles, l.MaxOpenFiles)
	require.Equal(t, time.Second, l.OperationTimeout)
	require.Equal(t, config.DefaultPreviewRowLimit, l.PreviewRowLimit)
}
