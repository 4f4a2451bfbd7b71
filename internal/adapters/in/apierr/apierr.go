// Package apierr maps engine errors to the short codes sent in realtime acks and to the
// HTTP status of REST responses. It is the single place where error types are classified.
package apierr

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/pkg/errs"
)

// Error codes.
const (
	CodeInvalidCode        = "InvalidCode"
	CodeExpired            = "Expired"
	CodeAlreadyUsed        = "AlreadyUsed"
	CodeNoPartnerAvailable = "NoPartnerAvailable"
	CodePartnerUnavailable = "PartnerUnavailable"
	CodeNotFound           = "NotFoundError"
	CodeValidation         = "ValidationError"
	CodeConflict           = "ConflictError"
	CodeVersionConflict    = "VersionConflict"
	CodeAuth               = "AuthError"
	CodeForbidden          = "Forbidden"
	CodePersistence        = "PersistenceError"
	CodeInternal           = "InternalError"
)

// ErrForbidden is returned when the caller's role may not perform an action.
var ErrForbidden = errs.NewValueIsInvalidError("forbidden for role")

// Response is the JSON body of a failed REST call.
type Response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Code returns the short code for err. Missing objects report "<Param>NotFound",
// for example OrderNotFound.
func Code(err error) string {
	code, _ := classify(err)
	return code
}

// Status returns the HTTP status for err.
func Status(err error) int {
	_, status := classify(err)
	return status
}

// From builds the REST response body for err.
func From(err error) Response {
	code, status := classify(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && code != CodeNoPartnerAvailable {
		message = http.StatusText(status)
	}
	return Response{Code: code, Message: message}
}

func classify(err error) (string, int) {
	var notFound *errs.ObjectNotFoundError

	switch {
	case err == nil:
		return "", http.StatusOK
	case errors.Is(err, kernel.ErrInvalidOTP):
		return CodeInvalidCode, http.StatusBadRequest
	case errors.Is(err, kernel.ErrOTPExpired):
		return CodeExpired, http.StatusGone
	case errors.Is(err, kernel.ErrOTPAlreadyUsed):
		return CodeAlreadyUsed, http.StatusConflict
	case errors.Is(err, commands.ErrNoPartnerAvailable):
		return CodeNoPartnerAvailable, http.StatusServiceUnavailable
	case errors.Is(err, partner.ErrPartnerUnavailable):
		return CodePartnerUnavailable, http.StatusConflict
	case errors.Is(err, ErrForbidden), errors.Is(err, queries.ErrOrderRoomForbidden):
		return CodeForbidden, http.StatusForbidden
	case errors.As(err, &notFound):
		return notFoundCode(notFound.ParamName), http.StatusNotFound
	case errors.Is(err, errs.ErrObjectNotFound):
		return CodeNotFound, http.StatusNotFound
	case errors.Is(err, errs.ErrUnauthorized):
		return CodeAuth, http.StatusUnauthorized
	case errors.Is(err, errs.ErrVersionIsInvalid):
		return CodeVersionConflict, http.StatusConflict
	case errors.Is(err, errs.ErrConflict):
		return CodeConflict, http.StatusConflict
	case errors.Is(err, errs.ErrExpired):
		return CodeExpired, http.StatusGone
	case errors.Is(err, errs.ErrValueIsInvalid),
		errors.Is(err, errs.ErrValueIsOutOfRange),
		errors.Is(err, errs.ErrValueIsRequired):
		return CodeValidation, http.StatusBadRequest
	case errors.Is(err, errs.ErrPersistence):
		return CodePersistence, http.StatusInternalServerError
	default:
		return CodeInternal, http.StatusInternalServerError
	}
}

func notFoundCode(param string) string {
	param = strings.TrimSpace(param)
	if param == "" {
		return CodeNotFound
	}
	runes := []rune(param)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes) + "NotFound"
}
