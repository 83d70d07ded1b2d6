package config

import (
	"io"
	"log"
	"os"
	"path/filepath"
)

// LogWriter is shared by the standard logger, gin's request log and gorm.
var LogWriter io.Writer = os.Stdout

// LogFilePath is LOG_FILE, or logs/manuscript-api.log.
func LogFilePath() string {
	return EnvOrDefault("LOG_FILE", filepath.Join("logs", "manuscript-api.log"))
}

// InitLogging tees the standard logger to stdout and the log file. The
// returned func closes the file; it is safe to call when no file was opened.
func InitLogging() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	path := LogFilePath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("Warning: Failed to create logs directory: %v", err)
		return func() {}
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("Warning: Failed to open log file: %v", err)
		return func() {}
	}

	LogWriter = io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(LogWriter)
	return func() {
		LogWriter = os.Stdout
		log.SetOutput(os.Stdout)
		_ = logFile.Close()
	}
}
