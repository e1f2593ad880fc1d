// Package config resolves runtime settings from the config file,
// environment variables and CLI flags, in that precedence order. Every
// resolved value remembers where it came from so `canvascope stats` can
// show the user why a setting has the value it has.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-provided overrides.
type ResolveOptions struct {
	ConfigPath  string
	CLIDBPath   string
	CLILimit    string
	CLICourse   string
	CLILogLevel string
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath           ResolvedValue `json:"db_path"`
	SearchLimit      ResolvedValue `json:"search_limit"`
	ActiveCourseID   ResolvedValue `json:"active_course_id"`
	ActiveCourseName ResolvedValue `json:"active_course_name"`
	LogLevel         ResolvedValue `json:"log_level"`
}

type fileConfig struct {
	DBPath string `yaml:"db_path"`
	Search struct {
		Limit int `yaml:"limit"`
	} `yaml:"search"`
	ActiveCourse struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"active_course"`
	LogLevel string `yaml:"log_level"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".canvascope", "config.yaml")
}

func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		if cfg.Search.Limit > 0 {
			apply(&out.SearchLimit, strconv.Itoa(cfg.Search.Limit), SourceConfig, path)
		}
		apply(&out.ActiveCourseID, cfg.ActiveCourse.ID, SourceConfig, path)
		apply(&out.ActiveCourseName, cfg.ActiveCourse.Name, SourceConfig, path)
		apply(&out.LogLevel, cfg.LogLevel, SourceConfig, path)
	}

	applyEnv(&out.DBPath, "CANVASCOPE_DB")
	applyEnv(&out.DBPath, "CANVASCOPE_DB_PATH")
	applyEnv(&out.SearchLimit, "CANVASCOPE_LIMIT")
	applyEnv(&out.ActiveCourseID, "CANVASCOPE_ACTIVE_COURSE_ID")
	applyEnv(&out.ActiveCourseName, "CANVASCOPE_ACTIVE_COURSE")
	applyEnv(&out.LogLevel, "CANVASCOPE_LOG")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.SearchLimit, opts.CLILimit, SourceCLI, "--limit")
	apply(&out.ActiveCourseName, opts.CLICourse, SourceCLI, "--course")
	apply(&out.LogLevel, opts.CLILogLevel, SourceCLI, "--log-level")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}

	return out, nil
}

// EffectiveLimit parses the resolved search limit, falling back when the
// value is missing or not a positive integer.
func (r ResolvedConfig) EffectiveLimit(fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.SearchLimit.Value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
