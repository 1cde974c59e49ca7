package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{EnvAllowedDirs, EnvEnableWrites, EnvMaxConcurrent, EnvMaxOpenFiles, EnvOperationTimeout} {
		t.Setenv(k, "")
	}
	s, err := FromEnv()
	require.NoError(t, err)
	require.Empty(t, s.AllowedDirs)
	require.False(t, s.EnableWrites)
	require.Equal(t, DefaultMaxConcurrentRequests, s.MaxConcurrent)
	require.Equal(t, DefaultMaxOpenFiles, s.MaxOpenFiles)
	require.Equal(t, DefaultOperationTimeout, s.OperationTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv(EnvAllowedDirs, " /data , /srv/sheets,,")
	t.Setenv(EnvEnableWrites, "Yes")
	t.Setenv(EnvMaxConcurrent, "3")
	t.Setenv(EnvMaxOpenFiles, "2")
	t.Setenv(EnvOperationTimeout, "1500ms")

	s, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, []string{"/data", "/srv/sheets"}, s.AllowedDirs)
	require.True(t, s.EnableWrites)
	require.Equal(t, 3, s.MaxConcurrent)
	require.Equal(t, 2, s.MaxOpenFiles)
	require.Equal(t, 1500*time.Millisecond, s.OperationTimeout)
}

func TestFromEnvRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		EnvEnableWrites:     "maybe",
		EnvMaxConcurrent:    "0",
		EnvMaxOpenFiles:     "four",
		EnvOperationTimeout: "-1s",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := FromEnv()
			require.Error(t, err)
			require.Contains(t, err.Error(), key)
		})
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " on ", "yes"} {
		require.True(t, Truthy(v), v)
	}
	for _, v := range []string{"", "0", "off", "nope"} {
		require.False(t, Truthy(v), v)
	}
}

func TestLoadDotEnvMissingFileIsFine(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, LoadDotEnv())
}
