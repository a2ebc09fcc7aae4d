// Package apperr builds the status errors returned by the service layer.
//
// Services speak gRPC status codes so the HTTP layer and the gRPC health
// endpoint share one error vocabulary.
package apperr

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func NotFound(format string, args ...any) error {
	return status.Error(codes.NotFound, fmt.Sprintf(format, args...))
}

func BadRequest(format string, args ...any) error {
	return status.Error(codes.InvalidArgument, fmt.Sprintf(format, args...))
}

func Conflict(format string, args ...any) error {
	return status.Error(codes.AlreadyExists, fmt.Sprintf(format, args...))
}

func Internal(format string, args ...any) error {
	return status.Error(codes.Internal, fmt.Sprintf(format, args...))
}

func Forbidden(format string, args ...any) error {
	return status.Error(codes.PermissionDenied, fmt.Sprintf(format, args...))
}

// Code returns the status code carried by err, codes.Unknown for plain errors
// and codes.OK for nil.
func Code(err error) codes.Code {
	return status.Code(err)
}
