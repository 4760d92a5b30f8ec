package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
)

func TestSuccess_JSONFormat(t *testing.T) {
	resp := Success(map[string]string{"id": "123"})

	jsonBytes, err := json.Marshal(resp)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonBytes, &parsed))

	assert.Equal(t, true, parsed["success"])
	assert.NotContains(t, parsed, "error")
	assert.Equal(t, http.StatusOK, resp.HTTPStatus())
}

func TestError_JSONFormat(t *testing.T) {
	resp := ErrorWithDetails(ErrCodeSeatUnavailable, "seats are not available", map[string]string{"seats": "A1"})

	jsonBytes, err := json.Marshal(resp)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(jsonBytes, &parsed))

	assert.Equal(t, false, parsed["success"])
	assert.NotContains(t, parsed, "data")
	errObj, ok := parsed["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "SEAT_UNAVAILABLE", errObj["code"])
	assert.Equal(t, map[string]interface{}{"seats": "A1"}, errObj["details"])
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
		wantSeats  string
	}{
		{"nil error", nil, "", http.StatusOK, ""},
		{"invalid tickets", fmt.Errorf("%w: no tickets requested", domain.ErrInvalidTicketRequest), ErrCodeInvalidTickets, http.StatusBadRequest, ""},
		{"seat count mismatch", domain.ErrSeatCountMismatch, ErrCodeSeatCountMismatch, http.StatusBadRequest, ""},
		{"seats unavailable", &domain.SeatUnavailableError{Seats: []string{"A1", "A2"}}, ErrCodeSeatUnavailable, http.StatusConflict, "A1,A2"},
		{"seat conflict", fmt.Errorf("failed to book seats: %w", &domain.SeatConflictError{Conflicting: []string{"B1"}}), ErrCodeSeatConflict, http.StatusConflict, "B1"},
		{"invalid promo", domain.ErrInvalidPromoCode, ErrCodeInvalidPromoCode, http.StatusUnprocessableEntity, ""},
		{"reservation expired", domain.ErrReservationExpired, ErrCodeReservationExpired, http.StatusGone, ""},
		{"invalid payment status", domain.ErrInvalidPaymentStatus, ErrCodeInvalidPaymentStatus, http.StatusBadRequest, ""},
		{"forbidden", domain.ErrForbidden, ErrCodeForbidden, http.StatusForbidden, ""},
		{"reservation not found", domain.ErrReservationNotFound, ErrCodeNotFound, http.StatusNotFound, ""},
		{"booking not found", fmt.Errorf("cancel: %w", domain.ErrBookingNotFound), ErrCodeNotFound, http.StatusNotFound, ""},
		{"duplicate", domain.ErrAlreadyExists, ErrCodeDuplicateEntry, http.StatusConflict, ""},
		{"unknown", errors.New("connection reset"), ErrCodeInternalError, http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, resp.HTTPStatus())

			if tt.err == nil {
				assert.True(t, resp.Success)
				return
			}
			require.NotNil(t, resp.Error)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantSeats, resp.Error.Details["seats"])
		})
	}
}

func TestFromError_HidesInternalText(t *testing.T) {
	resp := FromError(errors.New("password=hunter2 in dsn"))
	assert.Equal(t, "An internal error occurred", resp.Error.Message)
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodePromoExhausted, http.StatusConflict},
		{ErrCodeReservationExpired, http.StatusGone},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestCommonErrors(t *testing.T) {
	assert.Equal(t, ErrCodeBadRequest, BadRequest("bad").Error.Code)
	assert.Equal(t, "Resource not found", NotFound("").Error.Message)
	assert.Equal(t, "booking missing", NotFound("booking missing").Error.Message)
	assert.Equal(t, "An internal error occurred", InternalError("").Error.Message)
}
