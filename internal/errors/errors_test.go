package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"

	"github.com/victornm/livequiz/internal/errors"
)

func TestConvert(t *testing.T) {
	tests := map[string]struct {
		err      error
		wantCode errors.Code
		wantHTTP int
	}{
		"unknown error should become internal": {
			err:      stderrors.New("boom"),
			wantCode: errors.CodeInternal,
			wantHTTP: http.StatusInternalServerError,
		},
		"wrapped not found should be kept": {
			err:      fmt.Errorf("load: %w", errors.NotFound("session not found: %s", "ABC")),
			wantCode: errors.CodeNotFound,
			wantHTTP: http.StatusNotFound,
		},
		"invalid argument should map to bad request": {
			err:      errors.InvalidArgument("missing team"),
			wantCode: errors.CodeInvalidArgument,
			wantHTTP: http.StatusBadRequest,
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			e := errors.Convert(tt.err)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantHTTP, e.HTTPStatusCode())
			assert.Equal(t, codes.Code(tt.wantCode), e.GRPCStatus().Code())
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", errors.New(errors.CodeAborted, errors.WithMessagef("timer failed")))

	assert.True(t, errors.Is(err, errors.CodeAborted))
	assert.False(t, errors.Is(err, errors.CodeNotFound))
	assert.False(t, errors.Is(stderrors.New("plain"), errors.CodeInternal))
}
