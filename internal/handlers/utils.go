package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/hospms/apiserver/internal/services"
	"github.com/hospms/apiserver/internal/store"
)

// ErrorResponse is the error envelope returned by every endpoint.
// Code is machine-readable; clients branch on it, so codes are part of
// the API contract. Email is set only on VERIFICATION_REQUIRED so the
// client can offer a resend.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Email   string `json:"email,omitempty"`
}

// Error codes returned in ErrorResponse.Code.
const (
	codeNoToken                 = "NO_TOKEN"
	codeTokenExpired            = "TOKEN_EXPIRED"
	codeInvalidToken            = "INVALID_TOKEN"
	codeNotAuthenticated        = "NOT_AUTHENTICATED"
	codeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	codeAccountDeactivated      = "ACCOUNT_DEACTIVATED"
	codeEmailNotVerified        = "EMAIL_NOT_VERIFIED"
	codeUserNotFound            = "USER_NOT_FOUND"
	codeAlreadyVerified         = "ALREADY_VERIFIED"
	codeInvalidOTP              = "INVALID_OTP"
	codeOTPExpired              = "OTP_EXPIRED"
	codeInvalidCredentials      = "INVALID_CREDENTIALS"
	codeVerificationRequired    = "VERIFICATION_REQUIRED"
	codeDuplicateEmail          = "DUPLICATE_EMAIL"
	codeInvalidInput            = "INVALID_INPUT"
	codeEmailDelivery           = "EMAIL_DELIVERY_FAILED"
	codeNotFound                = "NOT_FOUND"
	codeDoctorProfileNotFound   = "DOCTOR_PROFILE_NOT_FOUND"
	codeStorageUnavailable      = "STORAGE_UNAVAILABLE"
	codeInternal                = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// writeServiceError maps domain failures onto the response contract.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, codeInvalidInput, err.Error())
	case errors.Is(err, services.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, codeDuplicateEmail, "email already in use")
	case errors.Is(err, services.ErrUserNotFound):
		writeError(w, http.StatusNotFound, codeUserNotFound, "user not found")
	case errors.Is(err, services.ErrAlreadyVerified):
		writeError(w, http.StatusBadRequest, codeAlreadyVerified, "email already verified")
	case errors.Is(err, services.ErrInvalidOTP):
		writeError(w, http.StatusBadRequest, codeInvalidOTP, "invalid verification code")
	case errors.Is(err, services.ErrOTPExpired):
		writeError(w, http.StatusBadRequest, codeOTPExpired, "verification code expired")
	case errors.Is(err, services.ErrEmailDelivery):
		writeError(w, http.StatusInternalServerError, codeEmailDelivery, "failed to send verification email")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid email or password")
	case errors.Is(err, services.ErrVerificationRequired):
		writeError(w, http.StatusForbidden, codeVerificationRequired, "email verification required")
	case errors.Is(err, services.ErrAccountDeactivated):
		writeError(w, http.StatusForbidden, codeAccountDeactivated, "account is deactivated")
	case errors.Is(err, services.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, codeDoctorProfileNotFound, "doctor profile not found")
	case errors.Is(err, services.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, codeStorageUnavailable, "file storage is not configured")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
	}
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pagination is the decoded page window of a list request.
type pagination struct {
	Page     int
	PageSize int
}

func (p pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// parsePagination reads page and pageSize query params. Pages are
// 1-based; out-of-range values fall back rather than erroring.
func parsePagination(r *http.Request, defaultSize int) pagination {
	p := pagination{Page: 1, PageSize: defaultSize}
	if raw := r.URL.Query().Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			p.Page = page
		}
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			p.PageSize = size
		}
	}
	if p.PageSize > maxPageSize {
		p.PageSize = maxPageSize
	}
	return p
}

// pagedResponse is the list envelope shared by every paginated endpoint.
type pagedResponse struct {
	Items    any `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

func writePage(w http.ResponseWriter, p pagination, items any, total int) {
	writeJSON(w, http.StatusOK, pagedResponse{
		Items:    items,
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "invalid request body")
		return false
	}
	return true
}
