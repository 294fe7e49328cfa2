package calcapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is an application error reported by the remote API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("calcutta api error %v", e.Status)
	}
	return fmt.Sprintf("calcutta api error %v: %v", e.Status, e.Message)
}

var _ error = (*Error)(nil)

// AsError extracts the remote API error from err, if any.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func IsUnauthorized(err error) bool {
	apiErr, ok := AsError(err)
	return ok && apiErr.Status == http.StatusUnauthorized
}

// UserMessage returns the text to show to the user for err. Remote errors are shown verbatim,
// transport failures get the generic fallback.
func UserMessage(err error, fallback string) string {
	if apiErr, ok := AsError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
