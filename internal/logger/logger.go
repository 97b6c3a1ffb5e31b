package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level controls which messages are emitted.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var (
	mu      sync.Mutex
	std     = log.New(os.Stdout, "", log.LstdFlags)
	current = InfoLevel

	debugPrintf = color.New(color.FgCyan).SprintfFunc()
	infoPrintf  = color.New(color.FgGreen).SprintfFunc()
	warnPrintf  = color.New(color.FgYellow).SprintfFunc()
	errorPrintf = color.New(color.FgRed).SprintfFunc()
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// SetLevel sets the minimum emitted level.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

// SetOutput redirects log output. Colors are disabled for non-terminal
// writers.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std = log.New(w, "", log.LstdFlags)
	if f, ok := w.(*os.File); !ok || (f != os.Stdout && f != os.Stderr) {
		color.NoColor = true
	}
}

func emit(l Level, line string) {
	mu.Lock()
	defer mu.Unlock()
	if current <= l {
		std.Print(line)
	}
}

func Debugf(format string, v ...any) { emit(DebugLevel, debugPrintf("[DEBUG] "+format, v...)) }
func Infof(format string, v ...any)  { emit(InfoLevel, infoPrintf("[INFO] "+format, v...)) }
func Warnf(format string, v ...any)  { emit(WarnLevel, warnPrintf("[WARN] "+format, v...)) }
func Errorf(format string, v ...any) { emit(ErrorLevel, errorPrintf("[ERROR] "+format, v...)) }
