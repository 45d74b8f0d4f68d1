package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a reply carries no JSON object.
var ErrNoJSON = errors.New("no JSON object in response")

// ExtractJSON returns the text between the first '{' and the last '}'.
func ExtractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ResultStatus tags the outcome of an LLM stage.
type ResultStatus int

const (
	StatusSuccess ResultStatus = iota
	StatusEmpty
	StatusError
)

func (s ResultStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusEmpty:
		return "empty"
	default:
		return "error"
	}
}

// StageResult is the soft-failure result of a stage. Callers switch on Status;
// Value is meaningful only for StatusSuccess and Err only for StatusError.
type StageResult[T any] struct {
	Status ResultStatus
	Value  T
	Err    error
}

// Success wraps a usable value.
func Success[T any](v T) StageResult[T] {
	return StageResult[T]{Status: StatusSuccess, Value: v}
}

// Empty signals a well-formed reply with nothing in it.
func Empty[T any]() StageResult[T] {
	return StageResult[T]{Status: StatusEmpty}
}

// Failure wraps a stage error.
func Failure[T any](err error) StageResult[T] {
	return StageResult[T]{Status: StatusError, Err: err}
}

// Decode turns a router reply into a StageResult. A reply without JSON is
// Empty; undecodable JSON is an Error; isEmpty, when set, demotes decoded
// values with no content to Empty.
func Decode[T any](resp *StageResponse, err error, isEmpty func(T) bool) StageResult[T] {
	if err != nil {
		return Failure[T](err)
	}
	if resp == nil {
		return Empty[T]()
	}

	raw := resp.ParsedJSON
	if raw == "" {
		var ok bool
		if raw, ok = ExtractJSON(resp.RawText); !ok {
			return Empty[T]()
		}
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Failure[T](fmt.Errorf("failed to decode stage output: %w", err))
	}
	if isEmpty != nil && isEmpty(v) {
		return Empty[T]()
	}
	return Success(v)
}
