package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"adoptify-web/internal/authclient"
	"adoptify-web/internal/middleware"
	"adoptify-web/internal/model"
	"adoptify-web/internal/navigation"
	"adoptify-web/internal/session"
	"adoptify-web/internal/upstream"
	"adoptify-web/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func writeRedirect(w http.ResponseWriter, target navigation.Target) {
	middleware.Redirect(w, target)
}

// writeError maps err to the response envelope. An expired session is not an
// error for the browser: it is sent to the login page.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrSessionExpired) {
		writeRedirect(w, navigation.AfterSessionExpired())
		return
	}

	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    apierror.CodeInternal,
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	var authErr *authclient.AuthError
	var reqErr *model.RequestError

	if errors.As(err, &apiErr) {
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	} else if errors.Is(err, model.ErrInvalidCredentials) {
		status = http.StatusUnauthorized
		body.Code = apierror.CodeInvalidCredentials
		body.Message = "Invalid username or password"
		if errors.As(err, &authErr) && authErr.Message != "" {
			body.Details = authErr.Message
		}
	} else if errors.Is(err, model.ErrProfileFetchFailed) {
		status = http.StatusBadGateway
		body.Code = apierror.CodeProfileFetchFailed
		body.Message = "Could not load your profile, please sign in again"
	} else if errors.Is(err, model.ErrMalformedResponse) {
		status = http.StatusBadGateway
		body.Code = apierror.CodeBadUpstreamResponse
		body.Message = "The Adoptify service returned an unexpected response"
		body.Details = err.Error()
	} else if errors.As(err, &reqErr) {
		switch {
		case reqErr.Temporary():
			status = http.StatusServiceUnavailable
			body.Code = apierror.CodeUpstreamUnavailable
			body.Message = "The Adoptify service is unreachable, try again"
		case reqErr.Status >= 500:
			status = http.StatusBadGateway
			body.Code = apierror.CodeUpstreamError
			body.Message = "The Adoptify service failed, try again"
		default:
			status = reqErr.Status
			body.Code = apierror.CodeUpstreamRejected
			body.Message = upstream.ErrorMessage(reqErr.Body)
			if body.Message == "" {
				body.Message = http.StatusText(reqErr.Status)
			}
			body.Details = string(reqErr.Body)
		}
	} else if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		body.Code = apierror.CodeBadRequest
		body.Message = "Invalid input"
	} else {
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return apierror.BadRequest("invalid JSON body", "")
	}
	return nil
}

// decodeOptionalJSON is decodeJSON for optional bodies. An empty body leaves
// out untouched whether it was sent chunked or with a zero length.
func decodeOptionalJSON(r *http.Request, out any) error {
	defer r.Body.Close()

	err := json.NewDecoder(r.Body).Decode(out)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apierror.BadRequest("invalid JSON body", "")
}

func pathInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest("invalid "+name, raw)
	}
	return id, nil
}

// storeFrom returns the session store bound by the session middleware.
func storeFrom(r *http.Request) session.Store {
	store, ok := session.FromContext(r.Context())
	if !ok {
		return nil
	}
	return store
}
