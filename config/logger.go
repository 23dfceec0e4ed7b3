package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"trbk/misc"
)

type LoggerConfig struct {
	Level       string `yaml:"level" validate:"required,oneof=none debug normal"`
	Destination string `yaml:"destination,omitempty" sanitize:"path_clean,assure_dir_exists_for_file" validate:"omitempty,filepath"`
	Mode        string `yaml:"mode,omitempty" validate:"omitempty,oneof=append overwrite"`
}

type LoggingConfig struct {
	FileLogger    LoggerConfig `yaml:"file"`
	ConsoleLogger LoggerConfig `yaml:"console"`
}

// consoleEncoder builds an encoder for the given console stream, colorized
// when the stream is an interactive terminal.
func consoleEncoder(stream *os.File, filterVerbose bool) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if EnableColorOutput(stream) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	if filterVerbose {
		return terseErrorEncoder{zapcore.NewConsoleEncoder(ec)}
	}
	return zapcore.NewConsoleEncoder(ec)
}

// consoleCores splits console output: info and below go to stdout, errors to
// stderr. Level "none" silences the console entirely.
func consoleCores(level string) (lowPriority, highPriority zapcore.Core) {
	var floor zapcore.Level
	switch level {
	case "normal":
		floor = zapcore.InfoLevel
	case "debug":
		floor = zapcore.DebugLevel
	default:
		return zapcore.NewNopCore(), zapcore.NewNopCore()
	}

	lowPriority = zapcore.NewCore(consoleEncoder(os.Stdout, false), zapcore.Lock(os.Stdout),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return floor <= lvl && lvl < zapcore.ErrorLevel
		}))
	highPriority = zapcore.NewCore(consoleEncoder(os.Stderr, true), zapcore.Lock(os.Stderr),
		zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
			return lvl >= zapcore.ErrorLevel
		}))
	return lowPriority, highPriority
}

func openLogFile(name, mode string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY
	if mode == "append" {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	return os.OpenFile(name, flags, 0644)
}

// captureCrashOutput points the runtime's crash output at a panic log next
// to the regular log file, falling back to a temp file. Failures here are
// ignored, losing a panic trace should never stop the program.
func captureCrashOutput(dest, mode string) {
	f, err := openLogFile(filepath.Join(filepath.Dir(dest), misc.GetAppName()+"-panic.log"), mode)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-panic.*.log"); err != nil {
			return
		}
	}
	debug.SetCrashOutput(f, debug.CrashOptions{})
	f.Close()
}

// fileCore builds the file logging core. When the configured destination is
// not writable the log is redirected to a temp file and redirectedTo reports
// its name.
func (conf *LoggingConfig) fileCore() (core zapcore.Core, redirectedTo string, err error) {
	var level zap.AtomicLevel
	switch conf.FileLogger.Level {
	case "debug":
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "normal":
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		return zapcore.NewNopCore(), "", nil
	}

	captureCrashOutput(conf.FileLogger.Destination, conf.FileLogger.Mode)

	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	f, err := openLogFile(conf.FileLogger.Destination, conf.FileLogger.Mode)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+".*.log"); err != nil {
			return nil, "", fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
		}
		redirectedTo = f.Name()
	}
	return zapcore.NewCore(enc, zapcore.Lock(f), level), redirectedTo, nil
}

// Prepare builds the program logger from the logging configuration.
func (conf *LoggingConfig) Prepare() (*zap.Logger, error) {
	lowPriority, highPriority := consoleCores(conf.ConsoleLogger.Level)
	fileCore, redirectedTo, err := conf.fileCore()
	if err != nil {
		return nil, err
	}

	log := zap.New(zapcore.NewTee(highPriority, lowPriority, fileCore), zap.AddCaller())
	if redirectedTo != "" {
		log.Warn("Log file was redirected to new location", zap.String("location", redirectedTo))
	}
	return log.Named(misc.GetAppName()), nil
}

// terseErrorEncoder strips the verbose representation from errors printed to
// the console, the full form still lands in the file log.
type terseErrorEncoder struct {
	zapcore.Encoder
}

func (c terseErrorEncoder) Clone() zapcore.Encoder {
	return terseErrorEncoder{c.Encoder.Clone()}
}

func (c terseErrorEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	out := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			f.Interface = errors.New(f.Interface.(error).Error())
		}
		out = append(out, f)
	}
	return c.Encoder.EncodeEntry(ent, out)
}
