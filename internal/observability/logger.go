// Package observability owns the process-wide loggers and the telemetry
// system used by the CLI and the resolution server.
package observability

import (
	"fmt"
	"os"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
)

var (
	// CLILogger is used by commands (SIMPLE profile).
	CLILogger *logging.Logger

	// ServerLogger is used by `agentcfg serve` (STRUCTURED profile).
	ServerLogger *logging.Logger
)

// ServerLogOptions shape the structured server logger.
type ServerLogOptions struct {
	Level       string
	Environment string
	// Namespace is attached to every record when set.
	Namespace string
	// ConfigDir is the opencode config directory being served.
	ConfigDir string
}

// InitCLILogger initializes the CLI logger. verbose lowers the level to DEBUG.
func InitCLILogger(serviceName string, verbose bool) {
	logger, err := logging.NewCLI(serviceName)
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize CLI logger", err)
	}
	if verbose {
		logger.SetLevel(logging.DEBUG)
	}
	CLILogger = logger
}

// InitServerLogger initializes the JSON server logger on stderr.
func InitServerLogger(serviceName string, opts ServerLogOptions) {
	logger, err := logging.New(serverLoggerConfig(serviceName, opts))
	if err != nil {
		exitWithCodeStderr(foundry.ExitConfigInvalid, "Failed to initialize server logger", err)
	}
	ServerLogger = logger
}

// Logger returns the server logger when serving, the CLI logger otherwise.
// It is nil before either is initialized.
func Logger() *logging.Logger {
	if ServerLogger != nil {
		return ServerLogger
	}
	return CLILogger
}

func serverLoggerConfig(serviceName string, opts ServerLogOptions) *logging.LoggerConfig {
	staticFields := make(map[string]any)
	if ns := strings.TrimSpace(opts.Namespace); ns != "" {
		staticFields["namespace"] = ns
	}
	if dir := strings.TrimSpace(opts.ConfigDir); dir != "" {
		staticFields["opencode_config_dir"] = dir
	}

	environment := strings.TrimSpace(opts.Environment)
	if environment == "" {
		environment = "production"
	}

	return &logging.LoggerConfig{
		Profile:      logging.ProfileStructured,
		DefaultLevel: parseLogLevel(opts.Level),
		Service:      serviceName,
		Environment:  environment,
		StaticFields: staticFields,
		Middleware: []logging.MiddlewareConfig{
			{
				Name:    "correlation",
				Enabled: true,
				Order:   100,
				Config:  make(map[string]any),
			},
		},
		Sinks: []logging.SinkConfig{
			{
				Type:   "console",
				Format: "json",
				Console: &logging.ConsoleSinkConfig{
					Stream:   "stderr",
					Colorize: false,
				},
			},
		},
		EnableCaller:     true,
		EnableStacktrace: true,
	}
}

func parseLogLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return "TRACE"
	case "debug":
		return "DEBUG"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return "INFO"
	}
}

// exitWithCodeStderr is used before any logger exists.
func exitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	line := "FATAL: " + msg
	if err != nil {
		line = fmt.Sprintf("%s: %v", line, err)
	}
	fmt.Fprintln(os.Stderr, line)

	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		fmt.Fprintf(os.Stderr, "Exit Code: %d\n", exitCode)
		os.Exit(int(exitCode))
	}
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	os.Exit(info.Code)
}
