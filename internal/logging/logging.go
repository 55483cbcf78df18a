// Package logging provides structured, leveled logging for netverdict.
//
// It favors explicit, boring Go over clever abstractions: named loggers,
// five levels, and optional key-value fields. Initialize the global level
// once at startup, then grab named loggers per component:
//
//	logging.Initialize("info")
//	logger := logging.GetLogger("engine")
//	logger.Info("rule set loaded")
//	logger.WarnWithFields("unknown operator",
//	    logging.Field("operator", ">>"),
//	    logging.Field("rule_id", "dns-slow"),
//	)
//
// Per-package overrides narrow or widen individual components without
// touching the global level; patterns with a trailing ".*" match a whole
// subtree of logger names:
//
//	logging.SetPackageLogLevels(map[string]string{
//	    "rules.*":   "debug",
//	    "apiserver": "warn",
//	})
//
// Logger instances are immutable; WithField returns a new logger, so they
// are safe to share across goroutines.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the logging level.
type Level int

const (
	// DEBUG level for detailed debugging information.
	DEBUG Level = iota
	// INFO level for informational messages.
	INFO
	// WARN level for warning messages.
	WARN
	// ERROR level for error messages.
	ERROR
	// FATAL level for fatal messages; logging at this level exits the process.
	FATAL
)

// LogField is a structured logging field.
type LogField struct {
	Key   string
	Value interface{}
}

// Field creates a structured logging field.
func Field(key string, value interface{}) LogField {
	return LogField{Key: key, Value: value}
}

// Logger writes leveled, optionally structured log lines for one component.
type Logger struct {
	level  Level
	name   string
	fields []LogField
}

var (
	globalLevel = INFO
	// packageLevels holds per-package overrides of the global level. Keys
	// are logger names ("rules.watcher") or prefix patterns ("rules.*").
	packageLevels = make(map[string]Level)
	levelMu       sync.RWMutex
	initOnce      sync.Once
	// exitFunc is called by Fatal. Overridable for tests.
	exitFunc = os.Exit
)

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG, nil
	case "INFO":
		return INFO, nil
	case "WARN":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	case "FATAL":
		return FATAL, nil
	default:
		return INFO, fmt.Errorf("invalid log level %q (must be debug, info, warn, error, or fatal)", s)
	}
}

// Initialize sets the global minimum log level.
func Initialize(levelStr string) error {
	level, err := ParseLevel(levelStr)
	if err != nil {
		return err
	}
	levelMu.Lock()
	globalLevel = level
	levelMu.Unlock()
	return nil
}

// SetPackageLogLevels configures per-package log level overrides.
// Keys are logger names or prefix patterns ("rules.*" matches
// "rules.watcher" but not "rules"); values are level names. The
// override set is replaced wholesale on every call.
func SetPackageLogLevels(levels map[string]string) error {
	parsed := make(map[string]Level, len(levels))
	for pkg, levelStr := range levels {
		level, err := ParseLevel(levelStr)
		if err != nil {
			return fmt.Errorf("invalid log level for package %q: %w", pkg, err)
		}
		parsed[pkg] = level
	}
	levelMu.Lock()
	packageLevels = parsed
	levelMu.Unlock()
	return nil
}

// packageLevelLocked resolves the override for a logger name: exact match
// first, then the longest matching wildcard pattern. Callers hold levelMu.
func packageLevelLocked(name string) (Level, bool) {
	if level, ok := packageLevels[name]; ok {
		return level, true
	}
	var best string
	found := false
	for pattern := range packageLevels {
		if !matchesPattern(name, pattern) {
			continue
		}
		if !found || len(pattern) > len(best) {
			best = pattern
			found = true
		}
	}
	if found {
		return packageLevels[best], true
	}
	return 0, false
}

// matchesPattern reports whether a logger name matches a pattern.
// "rules.*" matches anything under the "rules." prefix.
func matchesPattern(name, pattern string) bool {
	if name == pattern {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, ".*")
		return strings.HasPrefix(name, prefix+".")
	}
	return false
}

// GetLogger returns a logger with the given component name.
// The first call initializes the global level to INFO if Initialize was
// never called.
func GetLogger(name string) *Logger {
	initOnce.Do(func() {})
	levelMu.RLock()
	defer levelMu.RUnlock()
	return &Logger{level: globalLevel, name: name}
}

// WithField returns a new logger with an additional persistent field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	fields := make([]LogField, len(l.fields), len(l.fields)+1)
	copy(fields, l.fields)
	return &Logger{
		level:  l.level,
		name:   l.name,
		fields: append(fields, LogField{Key: key, Value: value}),
	}
}

func (l *Logger) shouldLog(level Level) bool {
	levelMu.RLock()
	defer levelMu.RUnlock()
	if override, ok := packageLevelLocked(l.name); ok {
		return level >= override
	}
	return level >= globalLevel
}

// Debug logs a formatted debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	if l.shouldLog(DEBUG) {
		l.write("DEBUG", fmt.Sprintf(msg, args...), nil)
	}
}

// Info logs a formatted info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	if l.shouldLog(INFO) {
		l.write("INFO", fmt.Sprintf(msg, args...), nil)
	}
}

// Warn logs a formatted warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	if l.shouldLog(WARN) {
		l.write("WARN", fmt.Sprintf(msg, args...), nil)
	}
}

// Error logs a formatted error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	if l.shouldLog(ERROR) {
		l.write("ERROR", fmt.Sprintf(msg, args...), nil)
	}
}

// ErrorWithErr logs an error message with an error object appended.
func (l *Logger) ErrorWithErr(msg string, err error) {
	if l.shouldLog(ERROR) {
		l.write("ERROR", fmt.Sprintf("%s - %v", msg, err), nil)
	}
}

// Fatal logs a fatal message and exits the process with code 1.
func (l *Logger) Fatal(msg string, args ...interface{}) {
	if l.shouldLog(FATAL) {
		l.write("FATAL", fmt.Sprintf(msg, args...), nil)
		exitFunc(1)
	}
}

// DebugWithFields logs a debug message with structured fields.
func (l *Logger) DebugWithFields(msg string, fields ...LogField) {
	if l.shouldLog(DEBUG) {
		l.write("DEBUG", msg, fields)
	}
}

// InfoWithFields logs an info message with structured fields.
func (l *Logger) InfoWithFields(msg string, fields ...LogField) {
	if l.shouldLog(INFO) {
		l.write("INFO", msg, fields)
	}
}

// WarnWithFields logs a warning message with structured fields.
func (l *Logger) WarnWithFields(msg string, fields ...LogField) {
	if l.shouldLog(WARN) {
		l.write("WARN", msg, fields)
	}
}

// ErrorWithFields logs an error message with structured fields.
func (l *Logger) ErrorWithFields(msg string, fields ...LogField) {
	if l.shouldLog(ERROR) {
		l.write("ERROR", msg, fields)
	}
}

// write formats and emits one log line. DEBUG/INFO go to stdout,
// WARN/ERROR/FATAL to stderr.
func (l *Logger) write(level, msg string, fields []LogField) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s: %s", timestamp(), level, l.name, msg)
	if len(l.fields) > 0 || len(fields) > 0 {
		b.WriteString(" |")
		for _, f := range l.fields {
			fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
		}
		for _, f := range fields {
			fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
		}
	}
	out := os.Stdout
	if level == "WARN" || level == "ERROR" || level == "FATAL" {
		out = os.Stderr
	}
	fmt.Fprintln(out, b.String())
}

// timestamp returns an RFC3339 timestamp. The LOG_TIMESTAMP env var
// overrides it for deterministic test output.
func timestamp() string {
	if override := os.Getenv("LOG_TIMESTAMP"); override != "" {
		return override
	}
	return time.Now().Format(time.RFC3339)
}
