package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/sports-card-catalog/internal/types"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"NotFound", fmt.Errorf("card 3: %w", types.ErrNotFound), http.StatusNotFound},
		{"Unauthenticated", types.ErrUnauthenticated, http.StatusUnauthorized},
		{"Conflict", fmt.Errorf("email: %w", types.ErrConflict), http.StatusBadRequest},
		{"Validation", fmt.Errorf("%w: year", types.ErrValidation), http.StatusBadRequest},
		{"IOFailure", fmt.Errorf("write: %w", types.ErrIOFailure), http.StatusBadRequest},
		{"Internal", types.ErrInternal, http.StatusInternalServerError},
		{"Unclassified", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func requestWithParam(name, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(name, value)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestParseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"9223372036854775807", 9223372036854775807, false},
		{"0", 0, true},
		{"-4", 0, true},
		{"four", 0, true},
		{"", 0, true},
		{"9223372036854775808", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			id, err := ParseID(requestWithParam("id", tt.raw), "id")
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

type loginBody struct {
	Username string `json:"username"`
	Year     int    `json:"year"`
}

func TestDecodeJSONBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"Valid", `{"username":"alice","year":1989}`, ""},
		{"Empty", ``, "body must not be empty"},
		{"Syntax", `{"username":}`, "badly-formed JSON (at character"},
		{"Truncated", `{"username":"alice"`, "badly-formed JSON"},
		{"WrongType", `{"year":"1989"}`, `incorrect JSON type for field "year"`},
		{"UnknownKey", `{"username":"alice","id":7}`, `unknown key "id"`},
		{"TrailingValue", `{"username":"alice"}{}`, "single JSON value"},
		{"TooLarge", `{"username":"` + strings.Repeat("a", int(DefaultMaxBodyBytes)) + `"}`, "must not be larger than 1048576 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst loginBody
			err := DecodeJSONBody(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, loginBody{Username: "alice", Year: 1989}, dst)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDecodeJSONBodyWith(t *testing.T) {
	t.Run("AllowUnknownFields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"alice","id":7,"createdAt":"2026-05-01T00:00:00Z"}`))
		var dst loginBody
		require.NoError(t, DecodeJSONBodyWith(httptest.NewRecorder(), req, &dst, DecodeOptions{AllowUnknownFields: true}))
		assert.Equal(t, "alice", dst.Username)
	})

	t.Run("RaisedLimit", func(t *testing.T) {
		big := `{"username":"` + strings.Repeat("a", 3<<20) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		var dst loginBody
		require.NoError(t, DecodeJSONBodyWith(httptest.NewRecorder(), req, &dst, DecodeOptions{MaxBytes: 4 << 20}))
		assert.Len(t, dst.Username, 3<<20)
	})

	t.Run("LoweredLimit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"alice"}`))
		var dst loginBody
		err := DecodeJSONBodyWith(httptest.NewRecorder(), req, &dst, DecodeOptions{MaxBytes: 8})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must not be larger than 8 bytes")
	})
}
