package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

var (
	// InfoLogger logs informational messages
	InfoLogger *log.Logger
	// ErrorLogger logs error messages
	ErrorLogger *log.Logger
	// DebugLogger logs debug messages
	DebugLogger *log.Logger
	// SecurityLogger logs webhook signature failures and other security events
	SecurityLogger *log.Logger
)

// InitLogger initializes the loggers, writing one file per level and day into logsDir
func InitLogger(logsDir string) error {
	if logsDir == "" {
		logsDir = "logs"
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %v", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	open := func(level string) (*os.File, error) {
		f, err := os.OpenFile(
			filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", level, timestamp)),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0644,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s log file: %v", level, err)
		}
		return f, nil
	}

	infoFile, err := open("info")
	if err != nil {
		return err
	}
	errorFile, err := open("error")
	if err != nil {
		return err
	}
	debugFile, err := open("debug")
	if err != nil {
		return err
	}
	securityFile, err := open("security")
	if err != nil {
		return err
	}

	InfoLogger = log.New(infoFile, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger = log.New(errorFile, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	DebugLogger = log.New(debugFile, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
	SecurityLogger = log.New(securityFile, "SECURITY: ", log.Ldate|log.Ltime|log.LUTC)

	return nil
}

// LogInfo logs an informational message
func LogInfo(format string, v ...interface{}) {
	if InfoLogger != nil {
		InfoLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// LogError logs an error message
func LogError(format string, v ...interface{}) {
	if ErrorLogger != nil {
		ErrorLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// LogDebug logs a debug message
func LogDebug(format string, v ...interface{}) {
	if DebugLogger != nil {
		DebugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// LogSecurity records a security event in the security log and mirrors it to the error log
func LogSecurity(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	if SecurityLogger != nil {
		SecurityLogger.Println(msg)
	}
	if ErrorLogger != nil {
		ErrorLogger.Output(2, "security event: "+msg)
	}
}

// LogRequest logs HTTP request details
func LogRequest(method, path, ip, requestID string, status int, duration time.Duration) {
	LogInfo("Request: %s %s from %s - Status: %d - Duration: %v - RequestID: %s", method, path, ip, status, duration, requestID)
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, stack []byte) {
	if ErrorLogger != nil {
		ErrorLogger.Printf("Error: %v\nStack Trace:\n%s", err, stack)
	}
}
