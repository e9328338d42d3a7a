package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"NewsAggregator/internal/domain"
)

// StatusError reports a non-success HTTP status from an upstream source.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// Classify converts any adapter failure into a FetchError. Errors that are
// already classified pass through unchanged.
func Classify(source domain.Source, err error) *domain.FetchError {
	if err == nil {
		return nil
	}

	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return fe
	}

	return domain.NewFetchError(kindFor(err), source, err)
}

func kindFor(err error) domain.ErrorKind {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests:
			return domain.KindRateLimited
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return domain.KindNetwork
		default:
			return domain.KindUnexpected
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return domain.KindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return domain.KindNetwork
	}

	return domain.KindUnexpected
}
