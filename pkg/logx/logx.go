// Package logx is the node's category logger. Lines go to stderr and, after
// Init with a file name, to a size-rotated log file.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
)

// Config controls log file rotation.
type Config struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
	Debug      bool   `yaml:"debug"`
}

var (
	logger = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lmicroseconds)

	debug atomic.Bool

	mu               sync.Mutex
	lumberjackLogger *lumberjack.Logger
)

// Init directs output to stderr plus the rotating file named in cfg.
// Calling it again replaces the previous file.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	debug.Store(cfg.Debug)
	if lumberjackLogger != nil {
		_ = lumberjackLogger.Close()
		lumberjackLogger = nil
	}
	if cfg.File == "" {
		logger.SetOutput(os.Stderr)
		return
	}
	lumberjackLogger = &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, lumberjackLogger))
}

// SetOutput replaces every log destination with w.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// SetDebug toggles Debug output.
func SetDebug(on bool) {
	debug.Store(on)
}

// Close flushes and closes the rotating file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if lumberjackLogger == nil {
		return nil
	}
	err := lumberjackLogger.Close()
	lumberjackLogger = nil
	logger.SetOutput(os.Stderr)
	return err
}

func Info(category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[INFO][%s]%s", ColorGreen, category, ColorReset)
	logger.Printf("%s: %s", coloredCategory, message)
}

func Error(category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[ERROR][%s]%s", ColorRed, category, ColorReset)
	logger.Printf("%s: %s", coloredCategory, message)
}

func Warn(category string, content ...interface{}) {
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[WARN][%s]%s", ColorYellow, category, ColorReset)
	logger.Printf("%s: %s", coloredCategory, message)
}

func Debug(category string, content ...interface{}) {
	if !debug.Load() {
		return
	}
	message := fmt.Sprint(content...)
	coloredCategory := fmt.Sprintf("%s[DEBUG][%s]%s", ColorBlue, category, ColorReset)
	logger.Printf("%s: %s", coloredCategory, message)
}

// Errorf logs an error message and returns a formatted error
func Errorf(format string, args ...interface{}) error {
	err := fmt.Errorf(format, args...)
	Error("ERROR", err.Error())
	return err
}
