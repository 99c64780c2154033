package youtube

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	// ErrExternalAccessRequired indicates the user has no stored YouTube credential.
	ErrExternalAccessRequired = errors.New("youtube access required")
	// ErrVideoNotFound indicates the requested video does not exist or is not visible.
	ErrVideoNotFound = errors.New("video not found on youtube")
	// ErrInvalidVideoID indicates input that is neither a video id nor a recognised video URL.
	ErrInvalidVideoID = errors.New("invalid youtube video id")
)

// ServiceError describes a failed call to the YouTube Data API.
type ServiceError struct {
	Op     string
	Status int
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("youtube %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("youtube %s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Forbidden reports whether YouTube refused the call for the stored credential.
func (e *ServiceError) Forbidden() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	svcErr := &ServiceError{Op: op, Err: err}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		svcErr.Status = apiErr.Code
	}
	return svcErr
}
