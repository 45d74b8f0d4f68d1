package analysis

import (
	"errors"
	"fmt"
)

// ErrNoCandidates is returned when discovery yields an empty universe.
var ErrNoCandidates = errors.New("no candidates discovered")

// UserInputError rejects a request before any network call is made.
type UserInputError struct {
	Field   string
	Message string
}

func (e *UserInputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid analysis request: %s", e.Message)
	}
	return fmt.Sprintf("invalid analysis request: %s: %s", e.Field, e.Message)
}

// IsUserInputError reports whether err is a request validation failure.
func IsUserInputError(err error) bool {
	var inputErr *UserInputError
	return errors.As(err, &inputErr)
}
