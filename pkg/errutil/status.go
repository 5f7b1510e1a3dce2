package errutil

import "net/http"

// CoreStatus is the transport-independent error classification used across
// services. Handlers map it to an HTTP status at the boundary.
type CoreStatus string

const (
	StatusBadRequest       CoreStatus = "bad_request"
	StatusValidationFailed CoreStatus = "validation_failed"
	StatusUnauthorized     CoreStatus = "unauthorized"
	StatusForbidden        CoreStatus = "forbidden"
	StatusNotFound         CoreStatus = "not_found"
	StatusConflict         CoreStatus = "conflict"
	StatusTimeout          CoreStatus = "timeout"
	StatusTooManyRequests  CoreStatus = "too_many_requests"
	StatusBadGateway       CoreStatus = "bad_gateway"
	StatusInternal         CoreStatus = "internal"
	StatusUnknown          CoreStatus = "unknown"
)

// HTTPStatus converts the CoreStatus to its closest HTTP status code.
func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusBadRequest, StatusValidationFailed:
		return http.StatusBadRequest
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusNotFound:
		return http.StatusNotFound
	case StatusConflict:
		return http.StatusConflict
	case StatusTimeout:
		return http.StatusGatewayTimeout
	case StatusTooManyRequests:
		return http.StatusTooManyRequests
	case StatusBadGateway:
		return http.StatusBadGateway
	case StatusInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
