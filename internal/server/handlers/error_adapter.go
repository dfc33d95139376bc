package handlers

import (
	"net/http"

	apperrors "github.com/agentcfg/agentcfg/internal/errors"
)

// ErrorResponder writes err as an HTTP error response.
type ErrorResponder func(http.ResponseWriter, *http.Request, error)

var httpErrorResponder ErrorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder lets the server inject its central error handler.
// Nil restores the default.
func SetHTTPErrorResponder(responder ErrorResponder) {
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	httpErrorResponder = responder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}
