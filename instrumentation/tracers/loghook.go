package tracers

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/stackroute/sim/hooking"
)

// LogHook writes one log line per hook event.
type LogHook struct {
	log   logrus.FieldLogger
	level logrus.Level
}

// NewLogHook creates a LogHook that logs at debug level.
func NewLogHook(log logrus.FieldLogger) *LogHook {
	return &LogHook{log: log, level: logrus.DebugLevel}
}

// WithLevel sets the level of the log lines.
func (h *LogHook) WithLevel(level logrus.Level) *LogHook {
	h.level = level
	return h
}

// Func logs the event.
func (h *LogHook) Func(ctx hooking.HookCtx) {
	fields := logrus.Fields{
		string(LabelDomain): domainName(ctx),
		"hook_time":         ctx.Time,
	}

	if ctx.Item != nil {
		fields["item"] = fmt.Sprint(ctx.Item)
	}

	if ctx.Detail != nil {
		fields["detail"] = fmt.Sprint(ctx.Detail)
	}

	h.log.WithFields(fields).Log(h.level, posName(ctx))
}
