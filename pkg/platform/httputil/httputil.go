package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "salesgate/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// ErrorResponse is the error body shared by every endpoint.
// Code is the stable machine-readable value clients branch on.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Code             string `json:"code,omitempty"`
}

// WriteError centralizes domain error translation to HTTP responses.
// Only the domain message is exposed; wrapped causes stay in the logs.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), ErrorResponse{
			Error:            DomainCodeToHTTPCode(domainErr.Code),
			ErrorDescription: domainErr.Message,
			Code:             MachineCode(domainErr.Code),
		})
		return
	}

	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error: DomainCodeToHTTPCode(dErrors.CodeInternal),
		Code:  MachineCode(dErrors.CodeInternal),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound, dErrors.CodeTenantNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput, dErrors.CodeTenantNotResolved:
		return http.StatusBadRequest
	case dErrors.CodeConflict, dErrors.CodeActiveSessionConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized, dErrors.CodeInvalidCredentials,
		dErrors.CodeTokenMalformed, dErrors.CodeTokenExpired, dErrors.CodeTokenRevoked:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to the "error" field.
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput:
		return "bad_request"
	case dErrors.CodeValidation:
		return "validation_error"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeActiveSessionConflict:
		return "active_session"
	case dErrors.CodeUnauthorized, dErrors.CodeTokenMalformed, dErrors.CodeTokenExpired, dErrors.CodeTokenRevoked:
		return "unauthorized"
	case dErrors.CodeInvalidCredentials:
		return "invalid_credentials"
	case dErrors.CodeTenantNotResolved:
		return "tenant_not_resolved"
	case dErrors.CodeTenantNotFound:
		return "tenant_not_found"
	case dErrors.CodeForbidden:
		return "forbidden"
	case dErrors.CodeTimeout:
		return "timeout"
	case dErrors.CodeUnavailable:
		return "service_unavailable"
	default:
		return "internal_error"
	}
}

// MachineCode is the upper-case code clients switch on, e.g. ACTIVE_SESSION
// for a login refused because another session is live.
func MachineCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeActiveSessionConflict:
		return "ACTIVE_SESSION"
	case dErrors.CodeInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case dErrors.CodeTokenMalformed:
		return "TOKEN_MALFORMED"
	case dErrors.CodeTokenExpired:
		return "TOKEN_EXPIRED"
	case dErrors.CodeTokenRevoked:
		return "TOKEN_REVOKED"
	case dErrors.CodeTenantNotResolved:
		return "TENANT_NOT_RESOLVED"
	case dErrors.CodeTenantNotFound:
		return "TENANT_NOT_FOUND"
	case dErrors.CodeUnavailable:
		return "UPSTREAM_UNAVAILABLE"
	case dErrors.CodeBadRequest, dErrors.CodeInvalidInput, dErrors.CodeValidation:
		return "BAD_REQUEST"
	case dErrors.CodeUnauthorized:
		return "UNAUTHORIZED"
	case dErrors.CodeForbidden:
		return "FORBIDDEN"
	case dErrors.CodeNotFound:
		return "NOT_FOUND"
	case dErrors.CodeConflict:
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}
