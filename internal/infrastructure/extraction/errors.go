package extraction

import (
	"errors"
	"fmt"
)

var ErrNoData = errors.New("extraction service returned no data")

// ServiceError is a non-2xx answer from the extraction service.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}

	return fmt.Sprintf("extraction service responded with status %d", e.StatusCode)
}

func createRequestError(err error) error {
	return fmt.Errorf("failed to create request: %w", err)
}

func doRequestError(err error) error {
	return fmt.Errorf("failed to reach extraction service: %w", err)
}

func decodeResponseError(err error) error {
	return fmt.Errorf("failed to decode response: %w", err)
}
