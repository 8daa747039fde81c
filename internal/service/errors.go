package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/video-subtitles/pkg/log"
)

type ErrorType int

const (
	ErrNotFound ErrorType = iota
	ErrEmptyResult
	ErrFormat
	ErrTranslation
	ErrFileWrite
	ErrExternal
	ErrConfig
	ErrUnknown
)

// PipelineError is returned by every Pipeline entry point.
type PipelineError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *PipelineError {
	return &PipelineError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func WrapError(err error, errorType ErrorType, message string) *PipelineError {
	e := NewError(errorType, message)
	e.Cause = err
	return e
}

func (e *PipelineError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var ctxParts []string
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func (e *PipelineError) WithContext(key string, value any) *PipelineError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrNotFound:
		return "NotFound"
	case ErrEmptyResult:
		return "EmptyResult"
	case ErrFormat:
		return "Format"
	case ErrTranslation:
		return "Translation"
	case ErrFileWrite:
		return "FileWrite"
	case ErrExternal:
		return "External"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return pErr.Type == errorType
	}
	return false
}

type ErrorHandler interface {
	Handle(err error) bool
	GetAdvice(err *PipelineError) string
}

type DefaultErrorHandler struct{}

func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{}
}

// Handle logs err with advice. It reports false for errors that did not come
// from the pipeline.
func (h *DefaultErrorHandler) Handle(err error) bool {
	var pErr *PipelineError
	if !errors.As(err, &pErr) {
		log.Error("Unknown Error: %v", err)
		return false
	}

	log.Error("Error Detail: %v\n advice: %s", err, h.GetAdvice(pErr))
	return true
}

func (h *DefaultErrorHandler) GetAdvice(err *PipelineError) string {
	switch err.Type {
	case ErrNotFound:
		return "Please check that the path is correct and the file exists with read permissions"
	case ErrEmptyResult:
		return "No speech was found; check that the video has an audio track in the source language"
	case ErrFormat:
		return "The segments file is not valid; transcribe the video again to regenerate it"
	case ErrTranslation:
		return "Translation stopped; rerun the same command to resume from the last saved batch"
	case ErrFileWrite:
		return "Please ensure the output directory exists and has write permissions"
	case ErrExternal:
		return "Please check that ffmpeg, ffprobe and whisper are installed and on PATH"
	case ErrConfig:
		return "Please check that configuration files or environment variables are set correctly"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}
