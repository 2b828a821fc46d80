package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/cleanup"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/event"
	"github.com/kacper-wojtaszczyk/repolens-cleanup/internal/model"
)

const (
	bodyComplete     = "Process complete"
	bodyUnrecognized = "File format not recognized"
	bodyInvalid      = "Invalid event format"
)

// maxEventSize bounds request bodies on the HTTP surface.
const maxEventSize = 1 << 20

// Response is what the invoker receives. Per-record outcomes only appear
// in logs.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Handler adapts the cleanup service to Lambda and HTTP invocations.
type Handler struct {
	svc *cleanup.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *cleanup.Service) *Handler {
	return &Handler{svc: svc}
}

// HandleEvent is the Lambda entry point. The error return is always nil:
// the outcome travels in the status code.
func (h *Handler) HandleEvent(ctx context.Context, raw json.RawMessage) (Response, error) {
	logger := slog.Default().With("invocation_id", invocationID(ctx).String())
	logger.DebugContext(ctx, "received event", "event", string(raw))

	targets, err := event.Decode(raw)
	if err != nil {
		logger.WarnContext(ctx, "invalid event structure", "error", err)
		return Response{StatusCode: http.StatusBadRequest, Body: bodyInvalid}, nil
	}

	report := h.svc.WithLogger(logger).Process(ctx, targets)
	if report.AllSkipped() {
		return Response{StatusCode: http.StatusOK, Body: bodyUnrecognized}, nil
	}
	return Response{StatusCode: http.StatusOK, Body: bodyComplete}, nil
}

func invocationID(ctx context.Context) model.InvocationID {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return model.InvocationID(lc.AwsRequestID)
	}
	return model.NewInvocationID()
}

// RegisterRoutes attaches all routes to the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("POST /events", h.handleEvent)
}

// handleHealth returns 204 No Content for liveness checks.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleEvent accepts the same payloads as the Lambda entry point.
func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) {
	resp := Response{StatusCode: http.StatusBadRequest, Body: bodyInvalid}
	if raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventSize)); err == nil {
		resp, _ = h.HandleEvent(r.Context(), raw)
	}
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp Response) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(resp.StatusCode)
	io.WriteString(w, resp.Body)
}
