// Package config implements the server's dynamic configuration surface: an
// atomic-pointer ServerConfig snapshot, readable lock-free and mutated field-by-field
// through CONFIG GET/SET.
package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rsms/go-log"
)

// Field describes one configuration field's current value, mutability, and (if mutable)
// the callback SetField invokes before publishing a new value; an error from the callback
// rejects the set.
type Field struct {
	Name      string
	Value     string
	Immutable bool
	onSet     func(newValue string) error
}

// snapshot is the immutable value swapped atomically on every successful set_field.
type snapshot struct {
	fields map[string]Field
	order  []string
}

// Config is the process-wide ServerConfig: a atomic.Pointer to an immutable snapshot,
// so readers never block on a writer mid-update.
type Config struct {
	ptr    atomic.Pointer[snapshot]
	logger *log.Logger
}

// Defaults holds the values the CLI surface (cmd/nimbis-server) may override before the
// server starts accepting connections; after that, host/port/data_path/worker_threads are
// immutable and save/appendonly/log_level remain live-settable via CONFIG SET.
type Defaults struct {
	Host          string
	Port          int
	DataPath      string
	Save          string
	AppendOnly    bool
	LogLevel      string
	WorkerThreads int
}

// DefaultDefaults returns the canonical field defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Host:          "127.0.0.1",
		Port:          6379,
		DataPath:      "./nimbis_data",
		Save:          "",
		AppendOnly:    false,
		LogLevel:      "info",
		WorkerThreads: runtime.NumCPU(),
	}
}

// New builds the initial Config from d, wiring log_level's change callback to logger.
func New(d Defaults, logger *log.Logger) *Config {
	c := &Config{logger: logger}
	appendOnly := "no"
	if d.AppendOnly {
		appendOnly = "yes"
	}
	fields := map[string]Field{
		"host":           {Name: "host", Value: d.Host, Immutable: true},
		"port":           {Name: "port", Value: strconv.Itoa(d.Port), Immutable: true},
		"data_path":      {Name: "data_path", Value: d.DataPath, Immutable: true},
		"save":           {Name: "save", Value: d.Save, Immutable: false},
		"appendonly":     {Name: "appendonly", Value: appendOnly, Immutable: false},
		"log_level":      {Name: "log_level", Value: d.LogLevel, Immutable: false, onSet: c.rebindLogLevel},
		"worker_threads": {Name: "worker_threads", Value: strconv.Itoa(d.WorkerThreads), Immutable: true},
	}
	order := []string{"host", "port", "data_path", "save", "appendonly", "log_level", "worker_threads"}
	c.ptr.Store(&snapshot{fields: fields, order: order})
	return c
}

func (c *Config) rebindLogLevel(newValue string) error {
	lvl, err := parseLogLevel(newValue)
	if err != nil {
		return err
	}
	if c.logger != nil {
		c.logger.Level = lvl
	}
	return nil
}

func parseLogLevel(s string) (log.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// GetField returns a single field's current value.
func (c *Config) GetField(name string) (string, error) {
	snap := c.ptr.Load()
	f, ok := snap.fields[name]
	if !ok {
		return "", fmt.Errorf("Field '%s' not found", name)
	}
	return f.Value, nil
}

// SetField validates mutability and, if the field has an onSet callback, invokes it
// before publishing the new snapshot.
func (c *Config) SetField(name, value string) error {
	snap := c.ptr.Load()
	f, ok := snap.fields[name]
	if !ok {
		return fmt.Errorf("Field '%s' not found", name)
	}
	if f.Immutable {
		return fmt.Errorf("Field '%s' is immutable", name)
	}
	if f.onSet != nil {
		if err := f.onSet(value); err != nil {
			return err
		}
	}
	next := make(map[string]Field, len(snap.fields))
	for k, v := range snap.fields {
		next[k] = v
	}
	f.Value = value
	next[name] = f
	c.ptr.Store(&snapshot{fields: next, order: snap.order})
	return nil
}

// ListFields returns every field name in canonical order.
func (c *Config) ListFields() []string {
	snap := c.ptr.Load()
	out := make([]string, len(snap.order))
	copy(out, snap.order)
	return out
}

// MatchFields returns name/value pairs for every field matching pattern: "*" (all),
// "prefix*", "*suffix", or "*mid*".
func (c *Config) MatchFields(pattern string) map[string]string {
	snap := c.ptr.Load()
	out := make(map[string]string)
	for _, name := range snap.order {
		if matchPattern(pattern, name) {
			out[name] = snap.fields[name].Value
		}
	}
	return out
}

func matchPattern(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	hasPrefixStar := strings.HasPrefix(pattern, "*")
	hasSuffixStar := strings.HasSuffix(pattern, "*")
	switch {
	case hasPrefixStar && hasSuffixStar && len(pattern) > 1:
		return strings.Contains(name, pattern[1:len(pattern)-1])
	case hasSuffixStar:
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	case hasPrefixStar:
		return strings.HasSuffix(name, pattern[1:])
	default:
		return pattern == name
	}
}

// Host, Port, DataPath, WorkerThreads are read-once convenience accessors for the
// immutable fields, used at startup before any worker exists.
func (c *Config) Host() string { v, _ := c.GetField("host"); return v }
func (c *Config) Port() int {
	v, _ := c.GetField("port")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
func (c *Config) DataPath() string { v, _ := c.GetField("data_path"); return v }
func (c *Config) WorkerThreads() int {
	v, _ := c.GetField("worker_threads")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 1
	}
	return n
}
