package common

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ErrorType categorises AWS API failures so callers can decide between
// retrying, surfacing, and aborting.
type ErrorType string

const (
	ErrorTypePermission ErrorType = "permission"
	ErrorTypeThrottle   ErrorType = "throttle"
	ErrorTypeCancelled  ErrorType = "cancelled"
	ErrorTypeAPI        ErrorType = "api"
)

// TagError wraps an AWS API failure with the operation and resource it
// occurred on.
type TagError struct {
	Type       ErrorType
	Operation  string
	ResourceID string
	Cause      error
}

func (e *TagError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("%s on %s: %v", e.Operation, e.ResourceID, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Cause)
}

func (e *TagError) Unwrap() error { return e.Cause }

// WrapAPIError classifies err and wraps it in a TagError. A nil err returns nil.
func WrapAPIError(operation, resourceID string, err error) error {
	if err == nil {
		return nil
	}
	return &TagError{
		Type:       ClassifyError(err),
		Operation:  operation,
		ResourceID: resourceID,
		Cause:      err,
	}
}

// ClassifyError maps err to an ErrorType using the smithy API error code.
func ClassifyError(err error) ErrorType {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeCancelled
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "AccessDeniedException", "UnauthorizedOperation":
			return ErrorTypePermission
		case "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequestsException", "SlowDown":
			return ErrorTypeThrottle
		}
	}
	return ErrorTypeAPI
}

// IsThrottle reports whether err is a throttling failure worth retrying.
func IsThrottle(err error) bool { return ClassifyError(err) == ErrorTypeThrottle }
