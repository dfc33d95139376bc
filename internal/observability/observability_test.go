package observability

import (
	"testing"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggers(t *testing.T) {
	origCLI, origServer := CLILogger, ServerLogger
	t.Cleanup(func() {
		CLILogger, ServerLogger = origCLI, origServer
	})

	CLILogger, ServerLogger = nil, nil
	assert.Nil(t, Logger())

	InitCLILogger("agentcfg", true)
	require.NotNil(t, CLILogger)
	assert.Same(t, CLILogger, Logger())
	CLILogger.Debug("cli logger ready", zap.String("component", "test"))

	InitServerLogger("agentcfg", ServerLogOptions{Level: "debug", Namespace: "agentcfg"})
	require.NotNil(t, ServerLogger)
	assert.Same(t, ServerLogger, Logger(), "server logger wins once serving")
	ServerLogger.Info("server logger ready", zap.Int("port", 8080))
}

func TestServerLoggerConfig(t *testing.T) {
	cfg := serverLoggerConfig("agentcfg", ServerLogOptions{
		Level:     "WARNING",
		Namespace: " agentcfg ",
		ConfigDir: "/home/dev/.config/opencode",
	})

	assert.Equal(t, logging.ProfileStructured, cfg.Profile)
	assert.Equal(t, "WARN", cfg.DefaultLevel)
	assert.Equal(t, "agentcfg", cfg.Service)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "agentcfg", cfg.StaticFields["namespace"])
	assert.Equal(t, "/home/dev/.config/opencode", cfg.StaticFields["opencode_config_dir"])
	require.Len(t, cfg.Sinks, 1)
	assert.Equal(t, "stderr", cfg.Sinks[0].Console.Stream)

	bare := serverLoggerConfig("agentcfg", ServerLogOptions{Environment: "test"})
	assert.Equal(t, "test", bare.Environment)
	assert.Empty(t, bare.StaticFields)
	assert.Equal(t, "INFO", bare.DefaultLevel)
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"Debug":   "DEBUG",
		"info":    "INFO",
		"warn":    "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"loud":    "INFO",
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLogLevel(in), "level %q", in)
	}
}

func TestResolvePort(t *testing.T) {
	port, err := resolvePort("[::]:9464")
	require.NoError(t, err)
	assert.Equal(t, 9464, port)

	_, err = resolvePort("no-port")
	assert.Error(t, err)
}
