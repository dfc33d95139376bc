package server

import (
	"net/http"

	apperrors "github.com/agentcfg/agentcfg/internal/errors"
)

// HandleError is the single error writer for every route.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}
