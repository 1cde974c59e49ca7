package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/vinodismyname/mcpsheets/config"
	"github.com/vinodismyname/mcpsheets/internal/registry"
	"github.com/vinodismyname/mcpsheets/internal/runtime"
	"github.com/vinodismyname/mcpsheets/internal/security"
	"github.com/vinodismyname/mcpsheets/internal/sheets"
	"github.com/vinodismyname/mcpsheets/internal/telemetry"
	"github.com/vinodismyname/mcpsheets/internal/workbooks"
	"github.com/vinodismyname/mcpsheets/pkg/version"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var (
		useStdio bool
		model    string
	)

	flag.BoolVar(&useStdio, "stdio", false, "Run server over stdio transport")
	flag.StringVar(&model, "model", "", "Client model name; caps result size to its context window")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr.
	logger := zlog.Output(os.Stderr).With().Str("service", "mcpsheets-server").Logger()
	ctx := logger.WithContext(context.Background())

	if err := config.LoadDotEnv(); err != nil {
		logger.Error().Err(err).Msg("config: failed to load .env")
		os.Exit(1)
	}
	settings, err := config.FromEnv()
	if err != nil {
		logger.Error().Err(err).Msg("config: invalid environment")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Security: validate allow-list directories on startup (fail-safe on error)
	secMgr, err := security.NewManagerFromSettings(settings)
	if err != nil {
		logger.Error().Err(err).Msg("security: failed to initialize manager")
		fmt.Fprintln(os.Stderr, "invalid security configuration; set "+config.EnvAllowedDirs)
		os.Exit(1)
	}
	if err := secMgr.ValidateConfig(); err != nil {
		logger.Error().Err(err).Msg("security: invalid allow-list configuration")
		fmt.Fprintln(os.Stderr, "no allowed directories configured; set "+config.EnvAllowedDirs)
		os.Exit(1)
	}
	logger.Info().Strs("allowed_dirs", secMgr.AllowedDirectories()).Msg("security allow-list configured")

	toolRegistry := registry.New()

	limits := runtime.LimitsFromSettings(settings)
	if budget := toolRegistry.PayloadBudget(model); budget > 0 && budget < limits.MaxPayloadBytes {
		limits.MaxPayloadBytes = budget
	}
	runtimeController := runtime.NewController(limits)
	runtimeMW := runtime.NewMiddleware(runtimeController, logger)

	files := workbooks.NewManager(runtimeController, secMgr)
	svc := sheets.NewService(files)

	writeFilter := registry.NewWriteToolFilter(settings.EnableWrites)
	hooks := telemetry.NewHooks(logger)

	srv := server.NewMCPServer(
		version.Name,
		version.Version(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(hooks.Server()),
		server.WithToolHandlerMiddleware(runtimeMW.ToolMiddleware),
		server.WithToolFilter(func(ctx context.Context, tools []mcp.Tool) []mcp.Tool { return writeFilter.FilterTools(ctx, tools) }),
	)

	tools := registry.NewTools(svc, runtimeController.LimitsSnapshot(), writeFilter.AllowsWrites())
	registry.RegisterSheetTools(srv, toolRegistry, tools)

	logger.Info().
		Ctx(ctx).
		Str("version", version.String()).
		Int("max_concurrent_requests", limits.MaxConcurrentRequests).
		Int("max_open_files", limits.MaxOpenFiles).
		Int("max_payload_bytes", limits.MaxPayloadBytes).
		Dur("operation_timeout", limits.OperationTimeout).
		Bool("writes_enabled", settings.EnableWrites).
		Str("model", model).
		Bool("stdio", useStdio).
		Msg("server bootstrap configured")

	if useStdio {
		if err := server.ServeStdio(srv); err != nil {
			// Use stderr for transport errors so clients don't misinterpret output
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// If no transport flags provided, print usage and exit non-zero
	fmt.Fprintln(os.Stderr, "no transport selected; use --stdio to run over stdio")
	os.Exit(2)
}
