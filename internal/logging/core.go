package logging

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// buildCore assembles the zapcore.Core tree a Logger writes through: a
// scrubbing encoder feeding stdout and/or an OTEL log bridge, with
// per-level rate limiting applied last so sampling decisions never see
// already-redacted content twice.
func buildCore(cfg *Config, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	var sinks []zapcore.Core

	if cfg.Output.Stdout {
		encoder, err := newStdoutEncoder(cfg)
		if err != nil {
			return nil, fmt.Errorf("building stdout encoder: %w", err)
		}
		sinks = append(sinks, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), cfg.Level))
	}

	if cfg.Output.OTEL && otelProvider != nil {
		sinks = append(sinks, otelzap.NewCore("lakesync", otelzap.WithLoggerProvider(otelProvider)))
	}

	if len(sinks) == 0 {
		return nil, fmt.Errorf("no log output enabled or available")
	}

	core := sinks[0]
	if len(sinks) > 1 {
		core = zapcore.NewTee(sinks...)
	}
	return rateLimit(core, cfg.Sampling), nil
}

func newStdoutEncoder(cfg *Config) (zapcore.Encoder, error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var base zapcore.Encoder
	if cfg.Format == "console" {
		base = zapcore.NewConsoleEncoder(encCfg)
	} else {
		base = zapcore.NewJSONEncoder(encCfg)
	}
	return newScrubbingEncoder(base, cfg.Redaction)
}

// levelGate restricts a core to entries an allow predicate accepts,
// passing everything else through as a no-op.
type levelGate struct {
	zapcore.Core
	allow func(zapcore.Level) bool
}

func (g *levelGate) Enabled(lvl zapcore.Level) bool {
	return g.allow(lvl) && g.Core.Enabled(lvl)
}

func (g *levelGate) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !g.allow(e.Level) {
		return ce
	}
	return g.Core.Check(e, ce)
}

func (g *levelGate) With(fields []zapcore.Field) zapcore.Core {
	return &levelGate{Core: g.Core.With(fields), allow: g.allow}
}

func gateAtLeast(core zapcore.Core, floor zapcore.Level) zapcore.Core {
	return &levelGate{Core: core, allow: func(l zapcore.Level) bool { return l >= floor }}
}

func gateExactly(core zapcore.Core, level zapcore.Level) zapcore.Core {
	return &levelGate{Core: core, allow: func(l zapcore.Level) bool { return l == level }}
}

// rateLimit wraps core so each level below Error is sampled against its
// own SamplingConfig.Levels entry; a level with no entry passes through
// unsampled rather than silently dropping. Error and above always pass.
func rateLimit(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	tiers := []zapcore.Core{gateAtLeast(core, zapcore.ErrorLevel)}
	seen := make(map[zapcore.Level]bool)
	for level, rate := range cfg.Levels {
		if level >= zapcore.ErrorLevel {
			continue
		}
		seen[level] = true
		tiers = append(tiers, zapcore.NewSamplerWithOptions(
			gateExactly(core, level), cfg.Tick.Duration(), rate.Initial, rate.Thereafter,
		))
	}
	tiers = append(tiers, gateBelow(core, zapcore.ErrorLevel, seen))
	return zapcore.NewTee(tiers...)
}

// gateBelow lets through any below-Error level that wasn't already given
// its own sampled tier.
func gateBelow(core zapcore.Core, ceiling zapcore.Level, excluded map[zapcore.Level]bool) zapcore.Core {
	return &levelGate{Core: core, allow: func(l zapcore.Level) bool {
		return l < ceiling && !excluded[l]
	}}
}
