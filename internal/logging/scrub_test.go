package logging

import (
	"testing"

	"github.com/fyrsmithlabs/lakesync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestSecret(t *testing.T) {
	f := Secret("apiKey", config.Secret("super-secret-value"))
	assert.Equal(t, "apiKey", f.Key)
	assert.Equal(t, "[REDACTED:19]", f.String)
}

func TestRedactedString(t *testing.T) {
	f := RedactedString("token", "abcd")
	assert.Equal(t, "[REDACTED:4]", f.String)
}

func TestNewScrubbingEncoder_DisabledPassesThrough(t *testing.T) {
	base := zapcore.NewJSONEncoder(zapcore.EncoderConfig{})
	enc, err := newScrubbingEncoder(base, RedactionConfig{Enabled: false})
	require.NoError(t, err)
	assert.Same(t, base, enc)
}

func TestNewScrubbingEncoder_InvalidPattern(t *testing.T) {
	base := zapcore.NewJSONEncoder(zapcore.EncoderConfig{})
	_, err := newScrubbingEncoder(base, RedactionConfig{Enabled: true, Patterns: []string{"("}})
	assert.Error(t, err)
}

func TestNewScrubbingEncoder_PatternTooLong(t *testing.T) {
	base := zapcore.NewJSONEncoder(zapcore.EncoderConfig{})
	_, err := newScrubbingEncoder(base, RedactionConfig{
		Enabled:  true,
		Patterns: []string{string(make([]byte, maxRedactionPatternLen+1))},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long")
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		EncodeLevel: zapcore.LowercaseLevelEncoder,
		LineEnding:  zapcore.DefaultLineEnding,
	}
}

func TestScrubbingEncoder_RedactsByFieldName(t *testing.T) {
	base := zapcore.NewJSONEncoder(jsonEncoderConfig())
	enc, err := newScrubbingEncoder(base, RedactionConfig{Enabled: true, Fields: []string{"password"}})
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Level: zapcore.InfoLevel, Message: "login"}, []zapcore.Field{
		zap.String("password", "hunter2"),
		zap.String("username", "alice"),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"password":"[REDACTED]"`)
	assert.Contains(t, out, `"username":"alice"`)
}

func TestScrubbingEncoder_RedactsByPattern(t *testing.T) {
	base := zapcore.NewJSONEncoder(jsonEncoderConfig())
	enc, err := newScrubbingEncoder(base, RedactionConfig{
		Enabled:  true,
		Patterns: []string{`(?i)bearer\s+\S+`},
	})
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Level: zapcore.InfoLevel, Message: "auth"}, []zapcore.Field{
		zap.String("header", "Bearer abc123"),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"header":"[REDACTED:pattern]"`)
}

func TestScrubbingEncoder_Clone(t *testing.T) {
	base := zapcore.NewJSONEncoder(jsonEncoderConfig())
	enc, err := newScrubbingEncoder(base, RedactionConfig{Enabled: true, Fields: []string{"password"}})
	require.NoError(t, err)

	clone := enc.Clone()
	buf, err := clone.EncodeEntry(zapcore.Entry{Message: "login"}, []zapcore.Field{zap.String("password", "x")})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"password":"[REDACTED]"`)
}
