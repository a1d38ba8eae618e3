package pinpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raphi011/pinpoint/internal/model"
	"github.com/raphi011/pinpoint/internal/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", model.NotFoundError{Kind: "class", Name: "Calc"}, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", model.NotFoundError{Kind: "method", Name: "Calc.m1"}), http.StatusNotFound},
		{"shutting down", ErrShuttingDown, http.StatusServiceUnavailable},
		{"configuration fault", &unit.ConfigurationFault{Message: unit.StaticInitializationUnsupported, Err: unit.ErrIsolationViolation}, http.StatusUnprocessableEntity},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	s := &Server{}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			s.httpError(w, tc.err)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body model.ErrorHTTP
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tc.err.Error(), body.Error)
		})
	}
}
