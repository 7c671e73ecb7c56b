package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "INFO"
}

// ParseLevel maps LOG_LEVEL values such as "debug" or "WARN". Unknown values mean INFO.
func ParseLevel(s string) LogLevel {
	for level, name := range levelNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return level
		}
	}
	return INFO
}

type palette struct {
	level    *color.Color
	category *color.Color
}

var palettes = map[LogLevel]palette{
	DEBUG: {color.New(color.FgCyan), color.New(color.FgCyan, color.Bold)},
	INFO:  {color.New(color.FgGreen), color.New(color.FgGreen, color.Bold)},
	WARN:  {color.New(color.FgYellow), color.New(color.FgYellow, color.Bold)},
	ERROR: {color.New(color.FgRed), color.New(color.FgRed, color.Bold)},
	FATAL: {color.New(color.FgRed, color.Bold), color.New(color.FgRed, color.Bold)},
}

var (
	timeColor = color.New(color.FgBlue)
	fileColor = color.New(color.FgMagenta)
)

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

type Logger struct {
	mu           sync.Mutex
	console      io.Writer
	logFile      *os.File
	colorEnabled bool
	minLevel     LogLevel
}

// NewLogger writes colored lines to stdout and JSON lines to a daily file under dir.
func NewLogger(dir string) *Logger {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatal("Failed to create logs directory:", err)
	}

	fileName := filepath.Join(dir, fmt.Sprintf("dholratri-api-%s.log", time.Now().Format("2006-01-02")))
	logFile, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatal("Failed to create log file:", err)
	}

	l := &Logger{
		console:      os.Stdout,
		logFile:      logFile,
		colorEnabled: true,
	}
	l.Info("LOGGER", fmt.Sprintf("Logging to %s", fileName))
	return l
}

// NewWithWriter logs uncolored lines to w only. Used by tests and tools.
func NewWithWriter(w io.Writer) *Logger {
	return &Logger{console: w}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWithWriter(io.Discard)
}

// SetLevel drops entries below level. FATAL is always written.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

func (l *Logger) write(level LogLevel, category, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.minLevel && level != FATAL {
		return
	}

	// skip write and the exported wrapper
	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Level:     level.String(),
		Category:  strings.ToUpper(category),
		Message:   message,
		File:      file,
		Line:      line,
	}

	if l.console != nil {
		fmt.Fprint(l.console, l.terminalLine(level, entry))
	}
	if l.logFile != nil {
		raw, _ := json.Marshal(entry)
		l.logFile.Write(append(raw, '\n'))
	}
}

func (l *Logger) terminalLine(level LogLevel, e LogEntry) string {
	clock := e.Timestamp[11:19]
	var where string

	if !l.colorEnabled {
		if e.File != "" && e.Line > 0 {
			where = fmt.Sprintf(" (%s:%d)", e.File, e.Line)
		}
		return fmt.Sprintf("%s %-5s [%-10s] %s%s\n", clock, e.Level, e.Category, e.Message, where)
	}

	p := palettes[level]
	if e.File != "" && e.Line > 0 {
		where = fileColor.Sprintf(" (%s:%d)", e.File, e.Line)
	}
	return fmt.Sprintf("%s %s %s %s%s\n",
		timeColor.Sprint(clock),
		p.level.Sprintf("%-5s", e.Level),
		p.category.Sprintf("[%-10s]", e.Category),
		e.Message,
		where,
	)
}

func (l *Logger) Debug(category, message string) { l.write(DEBUG, category, message) }
func (l *Logger) Info(category, message string)  { l.write(INFO, category, message) }
func (l *Logger) Warn(category, message string)  { l.write(WARN, category, message) }
func (l *Logger) Error(category, message string) { l.write(ERROR, category, message) }

func (l *Logger) Fatal(category, message string) {
	l.write(FATAL, category, message)
	l.Close()
	os.Exit(1)
}

// Component helpers. Each logs under its own category.

func (l *Logger) LogPurchase(action, purchaseID, message string) {
	l.write(INFO, "PURCHASE", fmt.Sprintf("[%s] %s - %s", action, purchaseID, message))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.write(INFO, "API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogKafka(action, topic, message string) {
	l.write(INFO, "KAFKA", fmt.Sprintf("[%s] %s - %s", action, topic, message))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.write(INFO, "DATABASE", fmt.Sprintf("[%s] %s - %s", operation, table, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.write(WARN, "SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile != nil {
		l.logFile.Close()
		l.logFile = nil
	}
}
