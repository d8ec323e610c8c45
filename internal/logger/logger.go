package logger

import (
	"fmt"
	"log"
	"os"
)

var (
	// Debug flag to control debug logging
	debugEnabled = false
	// The logger instances, usable before Init is called
	debugLogger = log.New(os.Stdout, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
	infoLogger  = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime)
	warnLogger  = log.New(os.Stdout, "WARN: ", log.Ldate|log.Ltime)
	errorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
)

// Init configures the logger
func Init(debug bool) {
	debugEnabled = debug

	if debugEnabled {
		Debug("Debug logging enabled")
	}
}

// Debug logs a debug message if debug mode is enabled
func Debug(format string, v ...interface{}) {
	if debugEnabled {
		debugLogger.Output(2, fmt.Sprintf(format, v...))
	}
}

// Info logs an info message
func Info(format string, v ...interface{}) {
	infoLogger.Output(2, fmt.Sprintf(format, v...))
}

// Warn logs a warning message
func Warn(format string, v ...interface{}) {
	warnLogger.Output(2, fmt.Sprintf(format, v...))
}

// Error logs an error message
func Error(format string, v ...interface{}) {
	errorLogger.Output(2, fmt.Sprintf(format, v...))
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

func tagged(l *log.Logger, tag, format string, v ...interface{}) {
	l.Output(3, "["+tag+"] "+fmt.Sprintf(format, v...))
}

func taggedDebug(tag, format string, v ...interface{}) {
	if debugEnabled {
		tagged(debugLogger, tag, format, v...)
	}
}

// Cache component logging

func CacheDebug(format string, v ...interface{}) { taggedDebug("cache", format, v...) }
func CacheInfo(format string, v ...interface{})  { tagged(infoLogger, "cache", format, v...) }
func CacheWarn(format string, v ...interface{})  { tagged(warnLogger, "cache", format, v...) }
func CacheError(format string, v ...interface{}) { tagged(errorLogger, "cache", format, v...) }

// RAG component logging

func RAGDebug(format string, v ...interface{}) { taggedDebug("rag", format, v...) }
func RAGInfo(format string, v ...interface{})  { tagged(infoLogger, "rag", format, v...) }
func RAGWarn(format string, v ...interface{})  { tagged(warnLogger, "rag", format, v...) }
func RAGError(format string, v ...interface{}) { tagged(errorLogger, "rag", format, v...) }

// LLM component logging

func LLMDebug(format string, v ...interface{}) { taggedDebug("llm", format, v...) }
func LLMInfo(format string, v ...interface{})  { tagged(infoLogger, "llm", format, v...) }
func LLMWarn(format string, v ...interface{})  { tagged(warnLogger, "llm", format, v...) }
func LLMError(format string, v ...interface{}) { tagged(errorLogger, "llm", format, v...) }

// Embedding component logging

func EmbedDebug(format string, v ...interface{}) { taggedDebug("embed", format, v...) }
func EmbedInfo(format string, v ...interface{})  { tagged(infoLogger, "embed", format, v...) }
func EmbedWarn(format string, v ...interface{})  { tagged(warnLogger, "embed", format, v...) }
func EmbedError(format string, v ...interface{}) { tagged(errorLogger, "embed", format, v...) }

// Intent classifier logging

func IntentDebug(format string, v ...interface{}) { taggedDebug("intent", format, v...) }
func IntentInfo(format string, v ...interface{})  { tagged(infoLogger, "intent", format, v...) }
func IntentWarn(format string, v ...interface{})  { tagged(warnLogger, "intent", format, v...) }

// Pipeline orchestrator logging

func PipeDebug(format string, v ...interface{}) { taggedDebug("pipeline", format, v...) }
func PipeInfo(format string, v ...interface{})  { tagged(infoLogger, "pipeline", format, v...) }
func PipeWarn(format string, v ...interface{})  { tagged(warnLogger, "pipeline", format, v...) }
func PipeError(format string, v ...interface{}) { tagged(errorLogger, "pipeline", format, v...) }

// Reranker logging

func RerankDebug(format string, v ...interface{}) { taggedDebug("rerank", format, v...) }
func RerankInfo(format string, v ...interface{})  { tagged(infoLogger, "rerank", format, v...) }
func RerankWarn(format string, v ...interface{})  { tagged(warnLogger, "rerank", format, v...) }

// HTTP server logging

func HTTPDebug(format string, v ...interface{}) { taggedDebug("http", format, v...) }
func HTTPInfo(format string, v ...interface{})  { tagged(infoLogger, "http", format, v...) }
func HTTPWarn(format string, v ...interface{})  { tagged(warnLogger, "http", format, v...) }
func HTTPError(format string, v ...interface{}) { tagged(errorLogger, "http", format, v...) }

// Telegram bot logging

func TelegramDebug(format string, v ...interface{}) { taggedDebug("telegram", format, v...) }
func TelegramInfo(format string, v ...interface{})  { tagged(infoLogger, "telegram", format, v...) }
func TelegramWarn(format string, v ...interface{})  { tagged(warnLogger, "telegram", format, v...) }
func TelegramError(format string, v ...interface{}) {
	tagged(errorLogger, "telegram", format, v...)
}

// Ingest job logging

func IngestDebug(format string, v ...interface{}) { taggedDebug("ingest", format, v...) }
func IngestInfo(format string, v ...interface{})  { tagged(infoLogger, "ingest", format, v...) }
func IngestWarn(format string, v ...interface{})  { tagged(warnLogger, "ingest", format, v...) }
func IngestError(format string, v ...interface{}) { tagged(errorLogger, "ingest", format, v...) }
