package orchestrator

import (
	"errors"
	"fmt"
)

// Error taxonomy per spec.md §7. Each sentinel is distinct so callers can
// errors.Is against the exact kind, but InvalidQuestion/QuestionTooLong
// both also surface as the same HTTP 400 at the transport layer and
// RequestTimeout as HTTP 504 — pkg/server maps these.
var (
	ErrInvalidQuestion = errors.New("invalid question")
	ErrQuestionTooLong = errors.New("question too long")
	ErrRequestTimeout  = errors.New("request timeout")
)

// MaxQuestionLength is §4.9's 4,000-character cap.
const MaxQuestionLength = 4000

func newInvalidQuestionError(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuestion, reason)
}
