package logging

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fyrsmithlabs/lakesync/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxRedactionPatternLen = 200

// Secret renders a config.Secret as a field that reveals only its
// length, never its value.
func Secret(key string, val config.Secret) zap.Field {
	return zap.String(key, fmt.Sprintf("[REDACTED:%d]", len(val.Value())))
}

// RedactedString renders val's length without its content, for
// sensitive strings that aren't wrapped in config.Secret.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// scrubbingEncoder wraps an Encoder and replaces any value whose field
// name or content matches RedactionConfig before it reaches the
// underlying encoder, so a caller forgetting to use Secret/RedactedString
// doesn't leak.
type scrubbingEncoder struct {
	zapcore.Encoder
	names    map[string]struct{}
	patterns []*regexp.Regexp
}

func newScrubbingEncoder(base zapcore.Encoder, cfg RedactionConfig) (zapcore.Encoder, error) {
	if !cfg.Enabled {
		return base, nil
	}

	names := make(map[string]struct{}, len(cfg.Fields))
	for _, f := range cfg.Fields {
		names[strings.ToLower(f)] = struct{}{}
	}

	patterns := make([]*regexp.Regexp, 0, len(cfg.Patterns))
	for _, p := range cfg.Patterns {
		if len(p) > maxRedactionPatternLen {
			return nil, fmt.Errorf("redaction pattern too long (max %d chars): %q", maxRedactionPatternLen, p)
		}
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	return &scrubbingEncoder{Encoder: base, names: names, patterns: patterns}, nil
}

func (e *scrubbingEncoder) matchesName(key string) bool {
	_, ok := e.names[strings.ToLower(key)]
	return ok
}

func (e *scrubbingEncoder) matchesPattern(val string) bool {
	for _, re := range e.patterns {
		if re.MatchString(val) {
			return true
		}
	}
	return false
}

func (e *scrubbingEncoder) AddString(key, val string) {
	switch {
	case e.matchesName(key):
		e.Encoder.AddString(key, "[REDACTED]")
	case e.matchesPattern(val):
		e.Encoder.AddString(key, "[REDACTED:pattern]")
	default:
		e.Encoder.AddString(key, val)
	}
}

func (e *scrubbingEncoder) AddByteString(key string, val []byte) {
	if e.matchesName(key) {
		e.Encoder.AddByteString(key, []byte("[REDACTED]"))
		return
	}
	e.Encoder.AddByteString(key, val)
}

func (e *scrubbingEncoder) AddBinary(key string, val []byte) {
	if e.matchesName(key) {
		e.Encoder.AddBinary(key, []byte("[REDACTED]"))
		return
	}
	e.Encoder.AddBinary(key, val)
}

// AddReflected redacts the whole value when the key is sensitive. For
// deep inspection of a struct or map, log it through Secret or a custom
// zapcore.ObjectMarshaler instead of relying on reflection-based scrubbing.
func (e *scrubbingEncoder) AddReflected(key string, val interface{}) error {
	if e.matchesName(key) {
		e.Encoder.AddString(key, "[REDACTED]")
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *scrubbingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.matchesName(key) {
		e.Encoder.AddString(key, "[REDACTED]")
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *scrubbingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.matchesName(key) {
		e.Encoder.AddString(key, "[REDACTED]")
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *scrubbingEncoder) Clone() zapcore.Encoder {
	return &scrubbingEncoder{
		Encoder:  e.Encoder.Clone(),
		names:    e.names,
		patterns: e.patterns,
	}
}
