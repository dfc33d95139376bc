package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcfg/agentcfg/internal/catalog"
	"github.com/agentcfg/agentcfg/internal/resolve"
	"github.com/agentcfg/agentcfg/internal/upstream"
)

func TestHTTPStatusFromCode(t *testing.T) {
	cases := map[string]int{
		CodeInvalidInput:       http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeRequirementUnmet:   http.StatusUnprocessableEntity,
		CodeResolutionFailed:   http.StatusUnprocessableEntity,
		CodeCatalogUnavailable: http.StatusServiceUnavailable,
		CodeExternalService:    http.StatusBadGateway,
		CodeTimeout:            http.StatusGatewayTimeout,
		"SOMETHING_ELSE":       http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatusFromCode(code), code)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromEnvelope(nil))
}

func TestFromValidation(t *testing.T) {
	ctx := context.Background()

	gate := FromValidation(ctx, resolve.KindAgent, "hephaestus", resolve.Validation{
		Error: `Required model "gpt-5.2-codex" not available in connected providers`,
	})
	assert.Equal(t, CodeRequirementUnmet, gate.Code)
	assert.Equal(t, "agent", gate.Context["kind"])
	assert.Equal(t, "hephaestus", gate.Context["name"])
	assert.NotEmpty(t, gate.CorrelationID)

	unresolved := FromValidation(ctx, resolve.KindCategory, "quick", resolve.Validation{
		Error: `Could not resolve model for category "quick"`,
	})
	assert.Equal(t, CodeResolutionFailed, unresolved.Code)
}

func TestFromLoadError(t *testing.T) {
	ctx := context.Background()

	loadErr := &catalog.LoadError{Command: "opencode models --verbose", Stderr: "boom", Err: fmt.Errorf("exit status 1")}
	env := FromLoadError(ctx, fmt.Errorf("load catalog: %w", loadErr))
	assert.Equal(t, CodeCatalogUnavailable, env.Code)
	assert.Equal(t, "boom", env.Context["stderr"])

	assert.Equal(t, CodeCatalogUnavailable, FromLoadError(ctx, catalog.ErrEmptyCatalog).Code)

	statusEnv := FromLoadError(ctx, &upstream.StatusError{URL: "https://example.test", StatusCode: 403})
	assert.Equal(t, CodeExternalService, statusEnv.Code)
	assert.Equal(t, 403, statusEnv.Context["upstream_status"])

	assert.Equal(t, CodeTimeout, FromLoadError(ctx, context.DeadlineExceeded).Code)
	assert.Equal(t, CodeInternal, FromLoadError(ctx, fmt.Errorf("disk on fire")).Code)
}

func TestEnsureEnvelope(t *testing.T) {
	original := NewNotFoundError("missing")
	assert.Same(t, original, EnsureEnvelope(original))

	wrapped := EnsureEnvelope(fmt.Errorf("plain"))
	assert.Equal(t, CodeInternal, wrapped.Code)
	assert.Equal(t, "plain", wrapped.Context["wrapped_error"])
	assert.Equal(t, string(gferrors.SeverityHigh), string(wrapped.Severity))

	assert.Equal(t, string(gferrors.SeverityCritical), string(EnsureEnvelope(nil).Severity))
}

func TestRespondWithEnvelope(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/resolve/oracle", nil)
	rec := httptest.NewRecorder()

	env := WrapInvalidInput(req.Context(), fmt.Errorf("bad ui model"), "invalid ui_model")
	RespondWithEnvelope(rec, req, env)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, CodeInvalidInput, body.Error.Code)
	assert.Equal(t, "invalid ui_model", body.Error.Message)
	assert.Equal(t, "bad ui model", body.Error.Details["wrapped_error"])
	assert.NotEmpty(t, body.Error.RequestID)
}

func TestResponseDetailsPrefersDetails(t *testing.T) {
	env := New(CodeInvalidInput, "x")
	env = withContext(env, map[string]any{"field": "context", "extra": 1}, true)
	env = env.WithDetails(map[string]any{"field": "details"})

	details := ResponseDetails(env)
	assert.Equal(t, "details", details["field"])
	assert.Equal(t, 1, details["extra"])
	assert.Nil(t, ResponseDetails(New(CodeInternal, "bare")))
}
