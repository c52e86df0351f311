package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level controls which records are emitted.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

var (
	mu      sync.Mutex
	level   = INFO
	console io.Writer = os.Stderr
	logFile *os.File
)

func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// SetLogFile mirrors every record into the given file in addition to stderr.
// Operational events land there as a side effect; the file carries no state.
func SetLogFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	return nil
}

func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func DebugC(component, msg string) { logC(DEBUG, component, msg, nil) }
func InfoC(component, msg string)  { logC(INFO, component, msg, nil) }
func WarnC(component, msg string)  { logC(WARN, component, msg, nil) }
func ErrorC(component, msg string) { logC(ERROR, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]interface{}) { logC(DEBUG, component, msg, fields) }
func InfoCF(component, msg string, fields map[string]interface{})  { logC(INFO, component, msg, fields) }
func WarnCF(component, msg string, fields map[string]interface{})  { logC(WARN, component, msg, fields) }
func ErrorCF(component, msg string, fields map[string]interface{}) { logC(ERROR, component, msg, fields) }

func logC(l Level, component, msg string, fields map[string]interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if l < level {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(fmt.Sprintf("%-5s", l.String()))
	b.WriteString(" [")
	b.WriteString(component)
	b.WriteString("] ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteByte(' ')
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(formatValue(fields[k]))
		}
	}
	b.WriteByte('\n')

	line := b.String()
	fmt.Fprint(console, line)
	if logFile != nil {
		fmt.Fprint(logFile, line)
	}
}

func formatValue(v interface{}) string {
	switch vv := v.(type) {
	case string:
		if strings.ContainsAny(vv, " \t\n") {
			return fmt.Sprintf("%q", vv)
		}
		return vv
	case error:
		return fmt.Sprintf("%q", vv.Error())
	default:
		return fmt.Sprintf("%v", vv)
	}
}
