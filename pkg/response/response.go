package response

import (
	"errors"
	"net/http"
	"strings"

	"github.com/prohmpiriya/booking-rush-checkout/internal/domain"
)

// Response represents the standard API response structure
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents error details in the response
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// --- Error Code Constants ---

// Common error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Checkout error codes
const (
	ErrCodeInvalidTickets       = "INVALID_TICKETS"
	ErrCodeInvalidMultiplier    = "INVALID_MULTIPLIER"
	ErrCodeSeatCountMismatch    = "SEAT_COUNT_MISMATCH"
	ErrCodeSeatUnavailable      = "SEAT_UNAVAILABLE"
	ErrCodeSeatConflict         = "SEAT_CONFLICT"
	ErrCodeInvalidPromoCode     = "INVALID_PROMO_CODE"
	ErrCodePromoExhausted       = "PROMO_CODE_EXHAUSTED"
	ErrCodeReservationExpired   = "RESERVATION_EXPIRED"
	ErrCodeInvalidPaymentStatus = "INVALID_PAYMENT_STATUS"
	ErrCodeDuplicateEntry       = "DUPLICATE_ENTRY"
)

// --- HTTP Status Code Mapping ---

// ErrorCodeToHTTPStatus maps error codes to HTTP status codes
var ErrorCodeToHTTPStatus = map[string]int{
	ErrCodeBadRequest:           http.StatusBadRequest,
	ErrCodeForbidden:            http.StatusForbidden,
	ErrCodeNotFound:             http.StatusNotFound,
	ErrCodeConflict:             http.StatusConflict,
	ErrCodeInternalError:        http.StatusInternalServerError,
	ErrCodeInvalidTickets:       http.StatusBadRequest,
	ErrCodeInvalidMultiplier:    http.StatusBadRequest,
	ErrCodeSeatCountMismatch:    http.StatusBadRequest,
	ErrCodeSeatUnavailable:      http.StatusConflict,
	ErrCodeSeatConflict:         http.StatusConflict,
	ErrCodeInvalidPromoCode:     http.StatusUnprocessableEntity,
	ErrCodePromoExhausted:       http.StatusConflict,
	ErrCodeReservationExpired:   http.StatusGone,
	ErrCodeInvalidPaymentStatus: http.StatusBadRequest,
	ErrCodeDuplicateEntry:       http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeToHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HTTPStatus returns the status a transport should send with resp
func (r *Response) HTTPStatus() int {
	if r.Error == nil {
		return http.StatusOK
	}
	return GetHTTPStatus(r.Error.Code)
}

// --- Response Builders ---

// Success creates a success response with data
func Success(data interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// Error creates an error response
func Error(code string, message string) *Response {
	return &Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// ErrorWithDetails creates an error response with additional details
func ErrorWithDetails(code string, message string, details map[string]string) *Response {
	return &Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// errorCodes is checked in order; more specific errors come first
var errorCodes = []struct {
	target error
	code   string
}{
	{domain.ErrInvalidTicketRequest, ErrCodeInvalidTickets},
	{domain.ErrInvalidMultiplier, ErrCodeInvalidMultiplier},
	{domain.ErrSeatCountMismatch, ErrCodeSeatCountMismatch},
	{domain.ErrSeatUnavailable, ErrCodeSeatUnavailable},
	{domain.ErrSeatConflict, ErrCodeSeatConflict},
	{domain.ErrInvalidPromoCode, ErrCodeInvalidPromoCode},
	{domain.ErrPromoCodeExhausted, ErrCodePromoExhausted},
	{domain.ErrReservationExpired, ErrCodeReservationExpired},
	{domain.ErrInvalidPaymentStatus, ErrCodeInvalidPaymentStatus},
	{domain.ErrForbidden, ErrCodeForbidden},
	{domain.ErrNotFound, ErrCodeNotFound},
	{domain.ErrAlreadyExists, ErrCodeDuplicateEntry},
}

// FromError maps a checkout error to an error response.
// Unknown errors become INTERNAL_ERROR without leaking their text.
func FromError(err error) *Response {
	if err == nil {
		return Success(nil)
	}

	for _, ec := range errorCodes {
		if !errors.Is(err, ec.target) {
			continue
		}
		if seats := offendingSeats(err); len(seats) > 0 {
			return ErrorWithDetails(ec.code, err.Error(), map[string]string{"seats": strings.Join(seats, ",")})
		}
		return Error(ec.code, err.Error())
	}
	return InternalError("")
}

func offendingSeats(err error) []string {
	var unavailable *domain.SeatUnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Seats
	}
	var conflict *domain.SeatConflictError
	if errors.As(err, &conflict) {
		return conflict.Seats()
	}
	return nil
}

// --- Common Error Responses ---

// BadRequest creates a bad request error response
func BadRequest(message string) *Response {
	return Error(ErrCodeBadRequest, message)
}

// NotFound creates a not found error response
func NotFound(message string) *Response {
	if message == "" {
		message = "Resource not found"
	}
	return Error(ErrCodeNotFound, message)
}

// InternalError creates an internal server error response
func InternalError(message string) *Response {
	if message == "" {
		message = "An internal error occurred"
	}
	return Error(ErrCodeInternalError, message)
}
