package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"
)

const (
	BUILD_INFO_FILENAME = "build-info.yaml"
	buildInfoPrefix     = "build."
	modulePath          = "github.com/case-framework/survey-engine"
)

type BuildInfoMode int

const (
	BuildInfoNever BuildInfoMode = iota
	BuildInfoOnce
	BuildInfoAlways
)

type LoggerConfig struct {
	LogToFile        bool   `json:"log_to_file" yaml:"log_to_file"`
	Filename         string `json:"filename" yaml:"filename"`
	MaxSize          int    `json:"max_size" yaml:"max_size"`
	MaxAge           int    `json:"max_age" yaml:"max_age"`
	MaxBackups       int    `json:"max_backups" yaml:"max_backups"`
	LogLevel         string `json:"log_level" yaml:"log_level"`
	IncludeSrc       bool   `json:"include_src" yaml:"include_src"`
	CompressOldLogs  bool   `json:"compress_old_logs" yaml:"compress_old_logs"`
	IncludeBuildInfo string `json:"include_build_info" yaml:"include_build_info"` // never, always, once
}

// InitLogger installs the process wide JSON logger. With log_to_file set the
// output also goes to a rotated file.
func InitLogger(cfg LoggerConfig) {
	mode := buildInfoModeFromString(cfg.IncludeBuildInfo)

	var buildInfo []slog.Attr
	if mode != BuildInfoNever {
		attrs, err := loadBuildInfo(BUILD_INFO_FILENAME, buildInfoPrefix)
		if err != nil {
			// without the file the logger still works, just without build attrs
			fmt.Fprintf(os.Stderr, "build info not loaded: %v\n", err)
		}
		buildInfo = attrs
	}

	logger := slog.New(newHandler(logWriter(cfg), cfg))
	if mode == BuildInfoAlways && len(buildInfo) > 0 {
		args := make([]any, len(buildInfo))
		for i, a := range buildInfo {
			args[i] = a
		}
		logger = logger.With(args...)
	}
	slog.SetDefault(logger)

	if mode == BuildInfoOnce && len(buildInfo) > 0 {
		slog.LogAttrs(context.Background(), slog.LevelInfo, "build info", buildInfo...)
	}
}

func logWriter(cfg LoggerConfig) io.Writer {
	if !cfg.LogToFile || cfg.Filename == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize, // megabytes
		MaxAge:     cfg.MaxAge,  // days
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.CompressOldLogs,
	})
}

func newHandler(w io.Writer, cfg LoggerConfig) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     LogLevelFromString(cfg.LogLevel),
		AddSource: cfg.IncludeSrc,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.SourceKey {
				return a
			}
			if source, ok := a.Value.Any().(*slog.Source); ok && source != nil {
				source.File = filepath.Base(source.File)
				source.Function = strings.TrimPrefix(source.Function, modulePath)
			}
			return a
		},
	})
}

func LogLevelFromString(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildInfoModeFromString(mode string) BuildInfoMode {
	switch mode {
	case "always":
		return BuildInfoAlways
	case "once":
		return BuildInfoOnce
	default:
		return BuildInfoNever
	}
}

// loadBuildInfo reads a flat yaml map and returns its entries as prefixed
// attributes, sorted by key.
func loadBuildInfo(filename string, prefix string) ([]slog.Attr, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	info := map[string]string{}
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.String(prefix+k, info[k]))
	}
	return attrs, nil
}
