package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings are the environment-driven knobs shared by the server and CLI.
type Settings struct {
	AllowedDirs      []string
	EnableWrites     bool
	MaxConcurrent    int
	MaxOpenFiles     int
	OperationTimeout time.Duration
}

// LoadDotEnv loads a .env file from the working directory when one exists.
// Variables already present in the environment are not overwritten.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("config: load .env: %w", err)
}

// FromEnv reads Settings from the process environment, falling back to the
// package defaults for unset values. Malformed values are errors.
func FromEnv() (Settings, error) {
	s := Settings{
		AllowedDirs:      splitList(os.Getenv(EnvAllowedDirs)),
		MaxConcurrent:    DefaultMaxConcurrentRequests,
		MaxOpenFiles:     DefaultMaxOpenFiles,
		OperationTimeout: DefaultOperationTimeout,
	}

	var err error
	if s.EnableWrites, err = envBool(EnvEnableWrites, false); err != nil {
		return s, err
	}
	if s.MaxConcurrent, err = envInt(EnvMaxConcurrent, s.MaxConcurrent); err != nil {
		return s, err
	}
	if s.MaxOpenFiles, err = envInt(EnvMaxOpenFiles, s.MaxOpenFiles); err != nil {
		return s, err
	}
	if v := strings.TrimSpace(os.Getenv(EnvOperationTimeout)); v != "" {
		d, perr := time.ParseDuration(v)
		if perr != nil || d <= 0 {
			return s, fmt.Errorf("config: %s must be a positive duration, got %q", EnvOperationTimeout, v)
		}
		s.OperationTimeout = d
	}
	return s, nil
}

// Truthy reports whether v spells an enabled flag (1, true, yes, on).
func Truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	switch strings.ToLower(v) {
	case "0", "false", "no", "off":
		return false, nil
	}
	if Truthy(v) {
		return true, nil
	}
	return def, fmt.Errorf("config: %s must be a boolean, got %q", key, v)
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def, fmt.Errorf("config: %s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

// splitList splits on the OS path-list separator and commas, dropping blanks.
func splitList(v string) []string {
	v = strings.ReplaceAll(v, string(os.PathListSeparator), ",")
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
