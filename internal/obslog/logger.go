// Package obslog provides the kernel's structured logging adapter, ported
// from the teacher's internal/infrastructure/logging.Logger: a thin wrapper
// over charmbracelet/log with component tagging and persistent fields. The
// hexagonal ports.Logger indirection the teacher layers over this is
// dropped — this module has no ports/adapters split elsewhere, so the
// adapter is used directly.
package obslog

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	cblog "github.com/charmbracelet/log"
)

// Options configures a Logger.
type Options struct {
	Writer       io.Writer
	Level        string
	TimeFormat   string
	ReportCaller bool
	Formatter    cblog.Formatter
	Component    string
	Fields       map[string]any
}

// Logger is the kernel's structured logger, backed by charmbracelet/log.
type Logger struct {
	logger *cblog.Logger
	fields []any
}

// New builds a Logger from opts. Level defaults to info; an unparseable
// level is reported as an error rather than silently downgraded.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		parsed, err := cblog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("obslog: parse log level: %w", err)
		}
		level = parsed
	}

	base := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		TimeFormat:      opts.TimeFormat,
		ReportTimestamp: true,
		ReportCaller:    opts.ReportCaller,
		Formatter:       opts.Formatter,
		Fields:          mapToFields(opts.Fields),
	})

	var fields []any
	if opts.Component != "" {
		fields = append(fields, "component", opts.Component)
	}

	return &Logger{logger: base, fields: fields}, nil
}

// NewNop returns a Logger that discards everything it's given, for tests
// and for callers that don't want kernel diagnostics on stdout.
func NewNop() *Logger {
	l, _ := New(Options{Writer: io.Discard})
	return l
}

// With derives a new Logger carrying additional persistent fields.
func (l *Logger) With(fields ...any) *Logger {
	if l == nil {
		return NewNop()
	}
	next := make([]any, len(l.fields), len(l.fields)+len(fields))
	copy(next, l.fields)
	next = append(next, fields...)
	return &Logger{logger: l.logger, fields: next}
}

func (l *Logger) Debug(msg string, fields ...any) { l.log(cblog.DebugLevel, msg, fields...) }
func (l *Logger) Info(msg string, fields ...any)  { l.log(cblog.InfoLevel, msg, fields...) }
func (l *Logger) Warn(msg string, fields ...any)  { l.log(cblog.WarnLevel, msg, fields...) }
func (l *Logger) Error(msg string, fields ...any) { l.log(cblog.ErrorLevel, msg, fields...) }

func (l *Logger) log(level cblog.Level, msg string, fields ...any) {
	if l == nil || l.logger == nil {
		return
	}
	payload := mergeFields(l.fields, fields)
	switch level {
	case cblog.DebugLevel:
		l.logger.Debug(msg, payload...)
	case cblog.WarnLevel:
		l.logger.Warn(msg, payload...)
	case cblog.ErrorLevel:
		l.logger.Error(msg, payload...)
	default:
		l.logger.Info(msg, payload...)
	}
}

func mapToFields(input map[string]any) []any {
	if len(input) == 0 {
		return nil
	}

	type field struct {
		key   string
		value any
	}

	fields := make([]field, 0, len(input))
	for k, v := range input {
		fields = append(fields, field{key: k, value: v})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].key < fields[j].key })

	res := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		res = append(res, f.key, f.value)
	}
	return res
}

// orderedFields accumulates key/value pairs from one or more (key, value,
// key, value, ...) slices, keeping only the last value seen per key while
// preserving each key's first-seen position — last write wins, first seen
// wins the slot.
type orderedFields struct {
	order []string
	value map[string]any
}

func (o *orderedFields) addPairs(pairs []any) {
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok || key == "" {
			continue
		}
		if _, seen := o.value[key]; !seen {
			o.order = append(o.order, key)
		}
		o.value[key] = pairs[i+1]
	}
}

func (o *orderedFields) flatten() []any {
	out := make([]any, 0, len(o.order)*2)
	for _, key := range o.order {
		out = append(out, key, o.value[key])
	}
	return out
}

// mergeFields layers additions over base, letting a per-call field override
// a persistent one of the same name without disturbing its position in the
// output.
func mergeFields(base, additions []any) []any {
	fields := &orderedFields{value: make(map[string]any, (len(base)+len(additions))/2)}
	fields.addPairs(base)
	fields.addPairs(additions)
	return fields.flatten()
}
