// Package config reads process settings from flags with environment
// fallbacks.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jaminalder/mu-torere/internal/domain"
	"github.com/rs/zerolog"
)

// Environment variables consulted when the matching flag is not given.
const (
	EnvAddr      = "MUTORERE_ADDR"
	EnvStart     = "MUTORERE_START"
	EnvLayout    = "MUTORERE_LAYOUT"
	EnvLogLevel  = "MUTORERE_LOG_LEVEL"
	EnvLogFormat = "MUTORERE_LOG_FORMAT"
)

// Config holds the settings shared by the binaries.
type Config struct {
	Addr      string
	Game      domain.Config
	LogLevel  zerolog.Level
	LogFormat string
}

type raw struct {
	addr, start, layout, level, format string
}

// Load parses args (without the program name). getenv defaults to os.Getenv;
// register, if set, adds binary specific flags before parsing.
func Load(name string, args []string, getenv func(string) string, register func(*flag.FlagSet)) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	var r raw
	fs.StringVar(&r.addr, "addr", envOr(getenv, EnvAddr, ":8080"), "http listen address")
	fs.StringVar(&r.start, "start", envOr(getenv, EnvStart, "A"), "side that moves first (A or B)")
	fs.StringVar(&r.layout, "layout", envOr(getenv, EnvLayout, "default"), "initial layout: default, alternating, or nine cells of A, B and . in position order")
	fs.StringVar(&r.level, "log-level", envOr(getenv, EnvLogLevel, "info"), "log level")
	fs.StringVar(&r.format, "log-format", envOr(getenv, EnvLogFormat, "console"), "log format: console or json")
	if register != nil {
		register(fs)
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}
	return r.resolve()
}

func (r raw) resolve() (Config, error) {
	cfg := Config{Addr: r.addr}

	start, err := domain.ParseOccupant(r.start)
	if err != nil || !start.IsPlayer() {
		return Config{}, fmt.Errorf("%w: %q", domain.ErrInvalidSide, r.start)
	}
	layout, err := parseLayout(r.layout)
	if err != nil {
		return Config{}, err
	}
	cfg.Game = domain.Config{Layout: layout, Start: start}

	lvl, err := zerolog.ParseLevel(strings.ToLower(r.level))
	if err != nil {
		return Config{}, fmt.Errorf("log level: %w", err)
	}
	cfg.LogLevel = lvl

	switch r.format {
	case "console", "json":
		cfg.LogFormat = r.format
	default:
		return Config{}, errors.New("log format must be console or json")
	}
	return cfg, nil
}

func parseLayout(s string) (domain.Layout, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return domain.DefaultLayout(), nil
	case "alternating":
		return domain.AlternatingLayout(), nil
	}
	return domain.ParseLayout(s)
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// Logger builds the process logger writing to w.
func (c Config) Logger(w io.Writer) zerolog.Logger {
	if c.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(c.LogLevel).With().Timestamp().Logger()
}
