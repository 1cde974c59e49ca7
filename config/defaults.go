package config

import "time"

// Default runtime limits for the spreadsheet server. Environment variables
// read by FromEnv override the concurrency and timeout values.

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 10
	DefaultMaxOpenFiles          = 4

	// Payload and row limits
	DefaultMaxPayloadBytes = 8 << 20 // 8MiB of rendered text per result
	DefaultPreviewRowLimit = 10
)

const (
	// Timeouts
	DefaultOperationTimeout      = 30 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second
)

// Environment variable names.
const (
	EnvAllowedDirs      = "MCPSHEETS_ALLOWED_DIRS"
	EnvEnableWrites     = "MCPSHEETS_ENABLE_WRITES"
	EnvMaxConcurrent    = "MCPSHEETS_MAX_CONCURRENT"
	EnvMaxOpenFiles     = "MCPSHEETS_MAX_OPEN_FILES"
	EnvOperationTimeout = "MCPSHEETS_OPERATION_TIMEOUT"
)
