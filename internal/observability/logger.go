package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog for structured logging.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new structured logger.
func NewLogger(service, version string, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(output).With().
		Timestamp().
		Str("service", service).
		Str("version", version).
		Str("host", getHostname()).
		Logger()

	return &Logger{
		logger: logger,
	}
}

// NopLogger returns a logger that discards everything.
func NopLogger() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// SetLevel parses level (debug, info, warn, error) and applies it. Unknown
// levels leave the logger unchanged.
func (l *Logger) SetLevel(level string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return l
	}
	return &Logger{logger: l.logger.Level(lvl)}
}

// WithInvocation adds invocation_id context to logger.
func (l *Logger) WithInvocation(invocationID string) *Logger {
	return &Logger{
		logger: l.logger.With().Str("invocation_id", invocationID).Logger(),
	}
}

// WithFile adds file context to logger.
func (l *Logger) WithFile(filePath string, fileSize int64) *Logger {
	return &Logger{
		logger: l.logger.With().
			Str("file_path", filePath).
			Int64("file_size", fileSize).
			Logger(),
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string) {
	l.logger.Debug().Msg(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string) {
	l.logger.Info().Msg(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.logger.Warn().Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(err error, msg string) {
	l.logger.Error().Err(err).Msg(msg)
}

// ParseStarted logs the start of a parse.
func (l *Logger) ParseStarted(filePath string) {
	l.logger.Info().
		Str("file_path", filePath).
		Msg("parse started")
}

// HeaderProbed logs the raw header findings.
func (l *Logger) HeaderProbed(fileSize int64, magic string, transferSyntax string) {
	l.logger.Debug().
		Int64("file_size", fileSize).
		Str("dicom_magic", magic).
		Str("transfer_syntax", transferSyntax).
		Msg("header probed")
}

// ParseCompleted logs a successful parse.
func (l *Logger) ParseCompleted(attributes, previews int, duration time.Duration, outputBytes int) {
	l.logger.Info().
		Int("attributes", attributes).
		Int("previews", previews).
		Int("output_bytes", outputBytes).
		Float64("duration_seconds", duration.Seconds()).
		Msg("parse completed")
}

// DecodeFailed logs a structured decode failure.
func (l *Logger) DecodeFailed(filePath string, err error) {
	l.logger.Error().
		Str("file_path", filePath).
		Err(err).
		Msg("structured decode failed")
}

// PixelStageFailed logs a preview failure. stage is decode, convert or encode.
func (l *Logger) PixelStageFailed(stage string, frame int, err error) {
	l.logger.Warn().
		Str("stage", stage).
		Int("frame", frame).
		Err(err).
		Msg("preview stage failed")
}

// FrameCountMismatch logs a NumberOfFrames that disagrees with the frames
// present in the pixel data.
func (l *Logger) FrameCountMismatch(declared, available int) {
	l.logger.Warn().
		Int("declared_frames", declared).
		Int("available_frames", available).
		Msg("frame count mismatch")
}

// Helper function to get hostname.
func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}
