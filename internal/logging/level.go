package logging

import "go.uber.org/zap/zapcore"

// TraceLevel sits below Debug for wire-protocol/byte-level detail that's
// almost always filtered out in production.
const TraceLevel = zapcore.Level(-2)

// ParseLevel parses a level name into a zapcore.Level, additionally
// accepting "trace" which zapcore's own UnmarshalText doesn't know about.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "trace" {
		return TraceLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel, err
	}
	return level, nil
}
