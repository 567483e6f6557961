package log

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHandler records every handled message so tests can assert on
// module gating without touching stderr.
type captureHandler struct {
	mu   sync.Mutex
	msgs []string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, r.Message)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.msgs...)
}

func TestModuleGating(t *testing.T) {
	h := &captureHandler{}
	prev := Root()
	SetDefault(NewLogger(h))
	defer SetDefault(prev)

	DisableModule(DecodeModule)
	Trace(DecodeModule, "hidden")
	Debug(DecodeModule, "hidden too")
	assert.Empty(t, h.messages())

	EnableModule(DecodeModule)
	defer DisableModule(DecodeModule)
	Debug(DecodeModule, "visible")
	require.Len(t, h.messages(), 1)
	assert.Equal(t, "visible", h.messages()[0])

	// Info is not gated by module.
	DisableModule(CacheModule)
	Info(CacheModule, "always")
	assert.Len(t, h.messages(), 2)
}

func TestEnableModules(t *testing.T) {
	defer func() {
		moduleEnabled = init_module(defaultKnownModules, defaultModuleEnabled)
	}()

	EnableModules("acquire, cache")
	assert.True(t, isModuleEnabled(AcquireModule))
	assert.True(t, isModuleEnabled(CacheModule))
	assert.False(t, isModuleEnabled(ConsoleModule))

	EnableModules("all")
	for _, m := range defaultKnownModules {
		assert.True(t, isModuleEnabled(m), m)
	}
}

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", LevelDebug},
		{"Info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"crit", LevelCrit},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
