package config

import (
	"fmt"
	"strings"
	"time"

	s "github.com/bnclabs/gosettings"
)

// Config is the typed form of the heapscope settings
type Config struct {
	Interval     int64 // ms between selected-target polls
	Detectors    []string
	NativeEvents bool
	LogLevel     string
	LogFile      string
}

// Defaultsettings for heapscope.
//
// "watch.interval" (int64, default: 100)
//		Milliseconds between two reads of the selected target.
//
// "detectors" (string, default: "jemalloc,tcmalloc,glibc")
//		Heap detectors to run, in order. The first match wins.
//
// "events.native" (bool, default: false)
//		Use the host's resume events instead of command hooks.
//
// "log.level" (string, default: "warn")
//		One of ignore, fatal, error, warn, info, verbose, debug, trace.
//
// "log.file" (string, default: "")
//		Log to this file instead of stderr.
func Defaultsettings() s.Settings {
	return s.Settings{
		"watch.interval": int64(100),
		"detectors":      "jemalloc,tcmalloc,glibc",
		"events.native":  false,
		"log.level":      "warn",
		"log.file":       "",
	}
}

// New mixes setts over the defaults and validates the result
func New(setts s.Settings) (*Config, error) {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)

	c := &Config{
		Interval:     setts.Int64("watch.interval"),
		NativeEvents: setts.Bool("events.native"),
		LogLevel:     setts.String("log.level"),
		LogFile:      setts.String("log.file"),
	}
	for _, name := range strings.Split(setts.String("detectors"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			c.Detectors = append(c.Detectors, name)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %dms", c.Interval)
	}
	if len(c.Detectors) == 0 {
		return fmt.Errorf("at least one heap detector is required")
	}
	switch c.LogLevel {
	case "ignore", "fatal", "error", "warn", "info", "verbose", "debug", "trace":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

func (c *Config) GetInterval() time.Duration {
	return time.Duration(c.Interval) * time.Millisecond
}

// LogSettings returns the settings for log.SetLogger
func (c *Config) LogSettings() map[string]interface{} {
	setts := map[string]interface{}{
		"log.level":      c.LogLevel,
		"log.colorfatal": "red",
		"log.colorerror": "hired",
		"log.colorwarn":  "yellow",
	}
	if c.LogFile != "" {
		setts["log.file"] = c.LogFile
	}
	return setts
}
