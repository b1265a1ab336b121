package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the logger settings shared by every binary.
// The envconfig keys are relative: the enclosing struct provides the LOG prefix.
type Config struct {
	Level      string `env:"LOG_LEVEL" env-default:"info" envconfig:"LEVEL" default:"info"`
	Encoding   string `env:"LOG_ENCODING" env-default:"json" envconfig:"ENCODING" default:"json"`
	OutputPath string `env:"LOG_OUTPUT" envconfig:"OUTPUT"` // empty means stdout
	// Sampling thins out repeated entries, for workers chewing through a backlog.
	Sampling bool `env:"LOG_SAMPLING" envconfig:"SAMPLING"`
}

// Sampling keeps the first entries of each message per second, then one in sampleThereafter.
const (
	sampleInitial    = 100
	sampleThereafter = 100
)

// New builds a zap logger from cfg. Every entry carries a "service" field set
// to service when it is not empty. Unknown levels fall back to info and
// unknown encodings to json. The console encoding colors levels for terminals.
func New(cfg Config, service string) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	logLevel := strings.ToLower(cfg.Level)
	if logLevel == "" {
		logLevel = "info"
	}
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		// The logger does not exist yet.
		fmt.Fprintf(os.Stderr, "invalid log level %q, using info: %v\n", cfg.Level, err)
		level.SetLevel(zap.InfoLevel)
	}

	encoding := strings.ToLower(cfg.Encoding)
	if encoding != "console" && encoding != "json" {
		encoding = "json"
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	if encoding == "console" {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = "stdout"
	}

	zapConfig := zap.Config{
		Level:             level,
		Development:       false,
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       []string{outputPath},
		ErrorOutputPaths:  []string{"stderr"},
	}
	if service != "" {
		zapConfig.InitialFields = map[string]interface{}{"service": service}
	}
	if cfg.Sampling {
		zapConfig.Sampling = &zap.SamplingConfig{Initial: sampleInitial, Thereafter: sampleThereafter}
	}

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build %s logger: %w", serviceLabel(service), err)
	}
	return logger, nil
}

func serviceLabel(service string) string {
	if service == "" {
		return "gameforge"
	}
	return service
}
