package backend

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusError_Is(t *testing.T) {
	tt := []struct {
		name     string
		code     int
		rejected bool
		notFound bool
	}{
		{name: "not found", code: http.StatusNotFound, rejected: true, notFound: true},
		{name: "forbidden", code: http.StatusForbidden, rejected: true},
		{name: "internal", code: http.StatusInternalServerError, rejected: true},
	}

	for i := range tt {
		tc := tt[i]

		t.Run(tc.name, func(t *testing.T) {
			err := fmt.Errorf("failed to get post: %w", &StatusError{Code: tc.code, Message: "msg"})

			assert.Equal(t, tc.rejected, errors.Is(err, ErrRejected))
			assert.Equal(t, tc.notFound, errors.Is(err, ErrNotFound))
			assert.False(t, errors.Is(err, ErrTransport))
		})
	}
}
