package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"winshirt-sync/internal/service"
	"winshirt-sync/pkg/apierror"
	"winshirt-sync/pkg/response"
)

// apiError maps service errors to their HTTP form.
func apiError(err error) *apierror.Error {
	var (
		apiErr *apierror.Error
		ve     *service.ValidationError
		re     *service.RemoteError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &ve):
		return apierror.ValidationError("invalid "+ve.Entity, apierror.Fields(ve.Fields)...)
	case errors.Is(err, service.ErrNotFound):
		return apierror.NotFound(err.Error())
	case errors.Is(err, service.ErrNotReadyForDraw),
		errors.Is(err, service.ErrLotteryNotActive),
		errors.Is(err, service.ErrNoParticipants),
		errors.Is(err, service.ErrLotteryNotCompleted):
		return apierror.NotReady(err.Error())
	case errors.Is(err, service.ErrCategoryInUse),
		errors.Is(err, service.ErrAccountExists):
		return apierror.Conflict(err.Error())
	case errors.Is(err, service.ErrInvalidSnapshot):
		return apierror.BadRequest(err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		return apierror.Unauthorized(err.Error())
	case errors.Is(err, service.ErrEmailNotConfirmed):
		return apierror.Forbidden(err.Error())
	case errors.Is(err, service.ErrOffline):
		return apierror.ServiceUnavailable("remote data service unreachable")
	case errors.As(err, &re):
		return apierror.ServiceUnavailable("remote " + re.Op + " on " + re.Table + " failed")
	default:
		return apierror.InternalError("")
	}
}

// writeError logs server-side failures and sends the mapped error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apiError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("code", apiErr.Code).Msg("request failed")
	}
	response.Error(w, apiErr)
}
