// internal/common/logger/tee.go
package logger

import (
	"fmt"
	"sort"
	"strings"
)

// SinkFunc receives a rendered copy of every entry written through a tee.
type SinkFunc func(level, message string)

type teeLogger struct {
	base   Logger
	sink   SinkFunc
	fields map[string]interface{}
}

// Tee returns a Logger that writes to base and mirrors each entry into sink.
// Fields attached with WithFields are kept out of the mirrored line so job
// logs stay readable; per-call fields are appended as key=value pairs.
func Tee(base Logger, sink SinkFunc) Logger {
	return &teeLogger{base: base, sink: sink}
}

func (t *teeLogger) Debug(msg string, fields map[string]interface{}) {
	t.base.Debug(msg, fields)
	t.mirror("debug", msg, fields)
}

func (t *teeLogger) Info(msg string, fields map[string]interface{}) {
	t.base.Info(msg, fields)
	t.mirror("info", msg, fields)
}

func (t *teeLogger) Warn(msg string, fields map[string]interface{}) {
	t.base.Warn(msg, fields)
	t.mirror("warn", msg, fields)
}

func (t *teeLogger) Error(msg string, fields map[string]interface{}) {
	t.base.Error(msg, fields)
	t.mirror("error", msg, fields)
}

func (t *teeLogger) WithFields(fields map[string]interface{}) Logger {
	return &teeLogger{base: t.base.WithFields(fields), sink: t.sink}
}

func (t *teeLogger) WithError(err error) Logger {
	return &teeLogger{
		base:   t.base.WithError(err),
		sink:   t.sink,
		fields: map[string]interface{}{"error": err},
	}
}

func (t *teeLogger) With(fields map[string]interface{}) Logger {
	return t.WithFields(fields)
}

func (t *teeLogger) mirror(level, msg string, fields map[string]interface{}) {
	if t.sink == nil {
		return
	}
	t.sink(level, render(msg, t.fields, fields))
}

func render(msg string, sets ...map[string]interface{}) string {
	var pairs []string
	for _, set := range sets {
		for k, v := range set {
			pairs = append(pairs, fmt.Sprintf("%s=%v", k, v))
		}
	}
	if len(pairs) == 0 {
		return msg
	}
	sort.Strings(pairs)
	return msg + " " + strings.Join(pairs, " ")
}
