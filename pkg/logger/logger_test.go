package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitConfiguresGlobalLogger(t *testing.T) {
	t.Cleanup(Replace(zap.NewNop()))

	require.NoError(t, Init("debug"))
	require.True(t, Logger().Core().Enabled(zap.DebugLevel))
}

func TestInitFallsBackToInfo(t *testing.T) {
	t.Cleanup(Replace(zap.NewNop()))

	require.NoError(t, Init("chatty"))
	require.False(t, Logger().Core().Enabled(zap.DebugLevel))
	require.True(t, Logger().Core().Enabled(zap.InfoLevel))
}

func TestLoggingHelpersEmitEntries(t *testing.T) {
	core, recorded := observer.New(zap.DebugLevel)
	t.Cleanup(Replace(zap.New(core)))

	Info("import completed", zap.Int("rows", 3))
	Error("import failed")
	Warn("cache fallback")
	Debug("cache hit")

	entries := recorded.All()
	require.Len(t, entries, 4)
	require.Equal(t, "import completed", entries[0].Message)
	require.EqualValues(t, 3, entries[0].ContextMap()["rows"])
	require.Equal(t, "cache hit", entries[3].Message)
}

func TestWithModuleAttachesModuleField(t *testing.T) {
	core, recorded := observer.New(zap.InfoLevel)
	t.Cleanup(Replace(zap.New(core)))

	WithModule("shop").Info("exported")

	entries := recorded.All()
	require.Len(t, entries, 1)
	require.Equal(t, "shop", entries[0].ContextMap()["module"])
}
