// Package errors builds gofulmen error envelopes for the resolution API and
// writes them as JSON responses.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentcfg/agentcfg/internal/catalog"
	"github.com/agentcfg/agentcfg/internal/metrics"
	"github.com/agentcfg/agentcfg/internal/observability"
	"github.com/agentcfg/agentcfg/internal/resolve"
	"github.com/agentcfg/agentcfg/internal/server/middleware"
	"github.com/agentcfg/agentcfg/internal/upstream"
)

// Error codes carried in envelopes.
const (
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeRequirementUnmet   = "REQUIREMENT_UNMET"
	CodeResolutionFailed   = "RESOLUTION_FAILED"
	CodeConfigInvalid      = "CONFIG_INVALID"
	CodeCatalogUnavailable = "CATALOG_UNAVAILABLE"
	CodeExternalService    = "EXTERNAL_SERVICE_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
	CodeInternal           = "INTERNAL_ERROR"
)

// New creates an envelope without request context.
func New(code, message string) *gferrors.ErrorEnvelope {
	return gferrors.NewErrorEnvelope(code, message)
}

func NewInvalidInputError(message string) *gferrors.ErrorEnvelope {
	return New(CodeInvalidInput, message)
}

func NewNotFoundError(message string) *gferrors.ErrorEnvelope {
	return New(CodeNotFound, message)
}

func NewMethodNotAllowedError(message string) *gferrors.ErrorEnvelope {
	return New(CodeMethodNotAllowed, message)
}

func NewServiceUnavailableError(message string) *gferrors.ErrorEnvelope {
	return New(CodeServiceUnavailable, message)
}

// Wrap creates an envelope for err carrying the request's correlation ID.
func Wrap(ctx context.Context, code string, err error, message string) *gferrors.ErrorEnvelope {
	envelope := New(code, message)
	correlationID := extractCorrelationID(ctx)
	envelope = envelope.WithCorrelationID(correlationID)
	envelope = envelope.WithTraceID(correlationID)
	return withContext(envelope, map[string]any{"wrapped_error": errText(err)}, err != nil)
}

func WrapInvalidInput(ctx context.Context, err error, message string) *gferrors.ErrorEnvelope {
	return Wrap(ctx, CodeInvalidInput, err, message)
}

func WrapConfigInvalid(ctx context.Context, err error, message string) *gferrors.ErrorEnvelope {
	return Wrap(ctx, CodeConfigInvalid, err, message)
}

func WrapInternal(ctx context.Context, err error, message string) *gferrors.ErrorEnvelope {
	envelope := Wrap(ctx, CodeInternal, err, message)
	envelope, _ = envelope.WithSeverity(gferrors.SeverityHigh)
	return envelope
}

// FromValidation turns a failed validation into a REQUIREMENT_UNMET envelope
// when a hard model gate failed, RESOLUTION_FAILED otherwise.
func FromValidation(ctx context.Context, kind resolve.Kind, name string, v resolve.Validation) *gferrors.ErrorEnvelope {
	code := CodeResolutionFailed
	if strings.HasPrefix(v.Error, "Required model") {
		code = CodeRequirementUnmet
	}
	envelope := Wrap(ctx, code, nil, v.Error)
	envelope, _ = envelope.WithSeverity(gferrors.SeverityMedium)
	return withContext(envelope, map[string]any{
		"kind": string(kind),
		"name": name,
	}, true)
}

// FromLoadError maps catalog and upstream failures onto envelopes. An
// envelope already in the chain is returned as is.
func FromLoadError(ctx context.Context, err error) *gferrors.ErrorEnvelope {
	var (
		envelope  *gferrors.ErrorEnvelope
		loadErr   *catalog.LoadError
		statusErr *upstream.StatusError
	)
	switch {
	case errors.As(err, &envelope) && envelope != nil:
		return envelope
	case errors.As(err, &loadErr):
		envelope := Wrap(ctx, CodeCatalogUnavailable, loadErr.Err, fmt.Sprintf("model catalog unavailable: %s failed", loadErr.Command))
		return withContext(envelope, map[string]any{"stderr": loadErr.Stderr}, loadErr.Stderr != "")
	case errors.Is(err, catalog.ErrEmptyCatalog):
		return Wrap(ctx, CodeCatalogUnavailable, err, "model catalog is empty")
	case errors.As(err, &statusErr):
		envelope := Wrap(ctx, CodeExternalService, err, "upstream schema request failed")
		return withContext(envelope, map[string]any{"upstream_status": statusErr.StatusCode}, true)
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(ctx, CodeTimeout, err, "operation timed out")
	default:
		return WrapInternal(ctx, err, "unexpected error")
	}
}

func extractCorrelationID(ctx context.Context) string {
	if ctx != nil {
		if requestID := middleware.GetRequestID(ctx); requestID != "" {
			return requestID
		}
	}
	return uuid.New().String()
}

// EnsureEnvelope normalizes any error into an envelope.
func EnsureEnvelope(err error) *gferrors.ErrorEnvelope {
	if err == nil {
		env := New(CodeInternal, "unexpected nil error")
		env, _ = env.WithSeverity(gferrors.SeverityCritical)
		return env
	}

	var envelope *gferrors.ErrorEnvelope
	if errors.As(err, &envelope) && envelope != nil {
		return envelope
	}

	env := New(CodeInternal, "unexpected error")
	env = withContext(env, map[string]any{"wrapped_error": err.Error()}, true)
	env, _ = env.WithSeverity(gferrors.SeverityHigh)
	return env
}

// EnsureCorrelationID attaches a correlation ID when the envelope lacks one.
func EnsureCorrelationID(envelope *gferrors.ErrorEnvelope, ctx context.Context) *gferrors.ErrorEnvelope {
	if envelope == nil || envelope.CorrelationID != "" {
		return envelope
	}

	var correlationID string
	if ctx != nil {
		correlationID = middleware.GetRequestID(ctx)
	}
	if correlationID == "" {
		correlationID = "fallback-" + gferrors.GenerateCorrelationID()
	}
	return envelope.WithCorrelationID(correlationID)
}

// HTTPStatusFromEnvelope maps an envelope onto an HTTP status.
func HTTPStatusFromEnvelope(envelope *gferrors.ErrorEnvelope) int {
	if envelope == nil {
		return http.StatusInternalServerError
	}
	return HTTPStatusFromCode(envelope.Code)
}

// HTTPStatusFromCode maps an error code onto an HTTP status.
func HTTPStatusFromCode(code string) int {
	switch code {
	case CodeInvalidInput, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeRequirementUnmet, CodeResolutionFailed, CodeConfigInvalid:
		return http.StatusUnprocessableEntity
	case CodeExternalService:
		return http.StatusBadGateway
	case CodeCatalogUnavailable, CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func withContext(envelope *gferrors.ErrorEnvelope, ctx map[string]any, apply bool) *gferrors.ErrorEnvelope {
	if envelope == nil || !apply {
		return envelope
	}
	merged := make(map[string]any, len(envelope.Context)+len(ctx))
	for key, value := range envelope.Context {
		merged[key] = value
	}
	for key, value := range ctx {
		merged[key] = value
	}
	updated, err := envelope.WithContext(merged)
	if err != nil {
		return envelope
	}
	return updated
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ResponseDetails merges envelope details and context for the response body.
// Details win on key collisions.
func ResponseDetails(envelope *gferrors.ErrorEnvelope) map[string]any {
	if envelope == nil {
		return nil
	}

	details := make(map[string]any)
	for key, value := range envelope.Details {
		details[key] = value
	}
	for key, value := range envelope.Context {
		if _, exists := details[key]; !exists {
			details[key] = value
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// HTTPErrorDetail is the error body returned to callers.
type HTTPErrorDetail struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// HTTPErrorResponse wraps HTTPErrorDetail.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// RespondWithError normalizes err and writes it as JSON.
func RespondWithError(w http.ResponseWriter, r *http.Request, err error) {
	RespondWithEnvelope(w, r, EnsureEnvelope(err))
}

// RespondWithEnvelope writes envelope as JSON, logging it and counting it.
func RespondWithEnvelope(w http.ResponseWriter, r *http.Request, envelope *gferrors.ErrorEnvelope) {
	if w == nil {
		return
	}

	var ctx context.Context
	if r != nil {
		ctx = r.Context()
	}
	envelope = EnsureCorrelationID(envelope, ctx)
	statusCode := HTTPStatusFromEnvelope(envelope)

	response := HTTPErrorResponse{
		Error: HTTPErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   ResponseDetails(envelope),
			RequestID: envelope.CorrelationID,
		},
	}

	logHTTPError(envelope, statusCode)
	emitErrorMetrics(r, envelope, statusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func logHTTPError(envelope *gferrors.ErrorEnvelope, statusCode int) {
	logger := observability.ServerLogger
	if logger == nil || envelope == nil {
		return
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.Int("http_status", statusCode),
	}
	if envelope.Severity != "" {
		fields = append(fields, zap.String("severity", string(envelope.Severity)))
	}
	for key, value := range envelope.Context {
		fields = append(fields, zap.Any(key, value))
	}
	if envelope.CorrelationID != "" {
		fields = append(fields, zap.String("request_id", envelope.CorrelationID))
	}

	switch envelope.Severity {
	case gferrors.SeverityCritical, gferrors.SeverityHigh:
		logger.Error(envelope.Message, fields...)
	case gferrors.SeverityMedium:
		logger.Warn(envelope.Message, fields...)
	default:
		logger.Info(envelope.Message, fields...)
	}
}

func emitErrorMetrics(r *http.Request, envelope *gferrors.ErrorEnvelope, statusCode int) {
	metrics.RecordError(envelope.Code, statusCode)
	if r != nil {
		metrics.RecordErrorByEndpoint(endpointPattern(r), envelope.Code)
	}
}

func endpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
