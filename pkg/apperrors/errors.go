package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnknownProjection = errors.New("unknown projection")
	ErrUnknownTemplate   = errors.New("unknown query template")
	ErrUnknownTool       = errors.New("unknown tool")
	ErrInvalidToolArgs   = errors.New("invalid tool arguments")
	ErrPromptCoverage    = errors.New("list field missing a display rule in the system prompt")
)
