package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	// Test binaries carry no module checksum, so the ldflags fallback applies.
	require.Equal(t, "dev", Version())
	require.Equal(t, "mcpsheets dev", String())
}
