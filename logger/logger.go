package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger provides leveled logging to stdout/stderr and, optionally, per-level
// files.
type Logger struct {
	debugLog   *log.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	debug      bool
	files      []*os.File
	mu         sync.Mutex
}

const flags = log.LstdFlags | log.Lshortfile

// New writes info/debug/warning records to out and errors to errOut.
func New(out, errOut io.Writer, debug bool) *Logger {
	l := &Logger{debug: debug}
	l.setupLoggers(out, out, errOut)
	return l
}

// NewWithDir additionally appends each level to info.log, warning.log and
// error.log under dir.
func NewWithDir(dir string, debug bool) (*Logger, error) {
	if dir == "" {
		return New(os.Stdout, os.Stderr, debug), nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	l := &Logger{debug: debug}
	infoFile, err := l.openLogFile(filepath.Join(dir, "info.log"))
	if err != nil {
		return nil, err
	}
	warningFile, err := l.openLogFile(filepath.Join(dir, "warning.log"))
	if err != nil {
		l.Close()
		return nil, err
	}
	errorFile, err := l.openLogFile(filepath.Join(dir, "error.log"))
	if err != nil {
		l.Close()
		return nil, err
	}

	l.setupLoggers(
		io.MultiWriter(os.Stdout, infoFile),
		io.MultiWriter(os.Stdout, warningFile),
		io.MultiWriter(os.Stderr, errorFile),
	)
	return l, nil
}

func (l *Logger) setupLoggers(info, warning, errOut io.Writer) {
	l.debugLog = log.New(info, "DEBUG   ", flags)
	l.infoLog = log.New(info, "INFO    ", flags)
	l.warningLog = log.New(warning, "WARNING ", flags)
	l.errorLog = log.New(errOut, "ERROR   ", flags)
}

func (l *Logger) openLogFile(filename string) (*os.File, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", filename, err)
	}
	l.files = append(l.files, file)
	return file, nil
}

// Debug is a no-op unless debug mode is on.
func (l *Logger) Debug(format string, v ...interface{}) {
	if !l.debug {
		return
	}
	l.output(l.debugLog, format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.output(l.infoLog, format, v...)
}

func (l *Logger) Warning(format string, v ...interface{}) {
	l.output(l.warningLog, format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.output(l.errorLog, format, v...)
}

func (l *Logger) output(target *log.Logger, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// calldepth 3 reports the caller of Info/Warning/Error.
	target.Output(3, fmt.Sprintf(format, v...))
}

// Close releases any log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}
