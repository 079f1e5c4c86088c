package dirchecker

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
)

// Debug flag names understood by the walker, hash pool and verifier
const (
	DebugScan   = "scan"
	DebugHash   = "hash"
	DebugVerify = "verify"
)

var (
	logMu              sync.Mutex
	logOutput          io.Writer = os.Stderr
	globalVerboseLevel int
	debugFlags         map[string]bool
)

// SetVerboseLevel sets the global verbose level
func SetVerboseLevel(level int) {
	logMu.Lock()
	defer logMu.Unlock()
	globalVerboseLevel = level
}

// GetVerboseLevel returns the current verbose level
func GetVerboseLevel() int {
	logMu.Lock()
	defer logMu.Unlock()
	return globalVerboseLevel
}

// SetLogOutput redirects verbose and debug output. A nil writer restores stderr.
func SetLogOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	if w == nil {
		w = os.Stderr
	}
	logOutput = w
}

// VerboseEnter logs function entry at level 3+ and returns a defer function for exit logging
func VerboseEnter() func() {
	if GetVerboseLevel() < 3 {
		return func() {}
	}

	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return func() {}
	}

	funcName := runtime.FuncForPC(pc).Name()
	if idx := strings.LastIndex(funcName, "."); idx != -1 {
		funcName = funcName[idx+1:]
	}

	writeLog("[TRACE] Entering function: %s\n", funcName)
	return func() {
		writeLog("[TRACE] Exiting function: %s\n", funcName)
	}
}

// VerboseLog logs a message at the specified verbose level
func VerboseLog(level int, format string, args ...interface{}) {
	if GetVerboseLevel() < level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	writeLog("[VERBOSE-%d] %s", level, msg)
}

// DebugLog writes a message when the named debug flag is enabled
func DebugLog(flag string, format string, args ...interface{}) {
	if !IsDebugEnabled(flag) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}
	writeLog("[%s] %s", strings.ToUpper(flag), msg)
}

func writeLog(format string, args ...interface{}) {
	logMu.Lock()
	defer logMu.Unlock()
	fmt.Fprintf(logOutput, format, args...)
}

// SetDebugFlags sets the debug flags from a comma-separated string
// Supports both simple flags ("scan,hash") and key:value format ("scan:true,hash:false")
func SetDebugFlags(flagsStr string) {
	flags := make(map[string]bool)

	for _, flag := range strings.Split(flagsStr, ",") {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}

		parts := strings.SplitN(flag, ":", 2)
		flagName := strings.ToLower(parts[0])
		flagValue := true

		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "false", "0", "no", "off":
				flagValue = false
			}
		}

		flags[flagName] = flagValue
	}

	logMu.Lock()
	debugFlags = flags
	logMu.Unlock()
}

// IsDebugEnabled returns true if the specified debug flag is enabled
func IsDebugEnabled(flag string) bool {
	logMu.Lock()
	defer logMu.Unlock()
	if debugFlags == nil {
		return false
	}
	return debugFlags[strings.ToLower(flag)]
}
