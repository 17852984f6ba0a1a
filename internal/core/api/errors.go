package api

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/browscap/internal/types"
)

// Lookup errors map the same way on both transports:
// bad input to INVALID_ARGUMENT/400, no dataset to UNAVAILABLE/503,
// timeouts to DEADLINE_EXCEEDED/504, broken datasets to INTERNAL/500.
// Auth errors are mapped by the auth package.

func grpcCode(err error) codes.Code {
	switch {
	case errors.Is(err, types.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, types.ErrNotPublished):
		return codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

func toStatus(err error) error {
	return status.Error(grpcCode(err), err.Error())
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotPublished):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
