package logging

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// alwaysOnCore is a real Core enabled at Debug and above, used where a
// test needs Enabled to reflect a levelGate's own decision rather than
// the zero-value behavior of zapcore.NewNopCore (always disabled).
func alwaysOnCore() zapcore.Core {
	return zapcore.NewCore(zapcore.NewJSONEncoder(zapcore.EncoderConfig{}), zapcore.AddSync(io.Discard), zapcore.DebugLevel)
}

func TestBuildCore_NoOutputFails(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = false
	_, err := buildCore(cfg, nil)
	assert.Error(t, err)
}

func TestBuildCore_StdoutOnly(t *testing.T) {
	cfg := NewDefaultConfig()
	core, err := buildCore(cfg, nil)
	require.NoError(t, err)
	assert.True(t, core.Enabled(zapcore.InfoLevel))
}

func TestRateLimit_DisabledIsNoop(t *testing.T) {
	core := alwaysOnCore()
	assert.Same(t, core, rateLimit(core, SamplingConfig{Enabled: false}))
}

func TestRateLimit_ErrorAlwaysEnabled(t *testing.T) {
	cfg := SamplingConfig{Enabled: true, Levels: map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 1, Thereafter: 0},
	}}
	core := rateLimit(alwaysOnCore(), cfg)
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestRateLimit_UnconfiguredLevelPassesThrough(t *testing.T) {
	cfg := SamplingConfig{Enabled: true, Levels: map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 1, Thereafter: 0},
	}}
	core := rateLimit(alwaysOnCore(), cfg)
	assert.True(t, core.Enabled(zapcore.WarnLevel))
}

func TestGateExactly_OnlyMatchesGivenLevel(t *testing.T) {
	gate := gateExactly(alwaysOnCore(), zapcore.WarnLevel)
	assert.True(t, gate.Enabled(zapcore.WarnLevel))
	assert.False(t, gate.Enabled(zapcore.InfoLevel))
}

func TestGateAtLeast_AllowsFloorAndAbove(t *testing.T) {
	gate := gateAtLeast(alwaysOnCore(), zapcore.WarnLevel)
	assert.True(t, gate.Enabled(zapcore.WarnLevel))
	assert.True(t, gate.Enabled(zapcore.ErrorLevel))
	assert.False(t, gate.Enabled(zapcore.InfoLevel))
}
