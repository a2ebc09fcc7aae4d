package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"not found", NotFound("order %s not found", "ORD-1"), codes.NotFound},
		{"bad request", BadRequest("insufficient stock for %q", "Shirt"), codes.InvalidArgument},
		{"conflict", Conflict("duplicate"), codes.AlreadyExists},
		{"internal", Internal("boom"), codes.Internal},
		{"forbidden", Forbidden("nope"), codes.PermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
}

func TestMessageKeepsEntity(t *testing.T) {
	err := BadRequest("insufficient stock for %q", "Shirt")
	st, ok := status.FromError(err)
	assert.True(t, ok)
	assert.Equal(t, `insufficient stock for "Shirt"`, st.Message())
}

func TestCode_PlainError(t *testing.T) {
	assert.Equal(t, codes.Unknown, Code(errors.New("plain")))
	assert.Equal(t, codes.OK, Code(nil))
}
