package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mavencrawler/shared/application/ports"
	"mavencrawler/shared/application/usecase/download"
	"mavencrawler/shared/domain/entity"
)

// DownloadHandler turns queue deliveries into download jobs.
type DownloadHandler struct {
	executor download.Executor
	logger   ports.Logger
	metrics  ports.Metrics
}

func NewDownloadHandler(executor download.Executor, obs ports.Observability) (*DownloadHandler, error) {
	logger, metrics, err := obs.ComponentsScoped("handler.download")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	return &DownloadHandler{
		executor: executor,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Handle never returns an error; the outcome is carried by the response so
// the runtime can decide between ack and requeue.
func (h *DownloadHandler) Handle(ctx context.Context, request ports.RuntimeRequest) (ports.RuntimeResponse, error) {
	startTime := time.Now()
	defer func() {
		h.metrics.RecordHistogram("handler.duration_ms", float64(time.Since(startTime).Milliseconds()), nil)
	}()

	job, err := h.parseRequest(request)
	if err != nil {
		h.logger.Error("Failed to parse download job", "request_id", request.ID, "error", err)
		h.metrics.IncrementCounter("handler.invalid_payload", nil)
		return errorResponse(err.Error(), false), nil
	}

	result, err := h.executor.Execute(ctx, job)
	if err != nil {
		return h.handleDownloadError(request, job, err), nil
	}

	return h.handleDownloadSuccess(request, result), nil
}

func (h *DownloadHandler) parseRequest(request ports.RuntimeRequest) (entity.DownloadJob, error) {
	var job entity.DownloadJob
	if err := request.Unmarshal(&job); err != nil {
		return job, fmt.Errorf("invalid payload: %w", err)
	}
	return job, nil
}

func (h *DownloadHandler) handleDownloadSuccess(request ports.RuntimeRequest, result *download.Result) ports.RuntimeResponse {
	data, err := json.Marshal(result)
	if err != nil {
		h.logger.Error("Failed to encode download result", "request_id", request.ID, "error", err)
	}
	h.metrics.IncrementCounter("handler.success", nil)
	return ports.RuntimeResponse{Success: true, Data: data}
}

func (h *DownloadHandler) handleDownloadError(request ports.RuntimeRequest, job entity.DownloadJob, err error) ports.RuntimeResponse {
	de := download.AsDomainError(err)
	h.logger.Error("Download failed",
		"request_id", request.ID,
		"job", job.String(),
		"code", de.Code,
		"retryable", de.Retryable,
		"redelivered", request.Redelivered,
		"error", err)
	h.metrics.IncrementCounter("handler.failure", map[string]string{"code": de.Code})
	return errorResponse(de.Error(), de.Retryable)
}

func errorResponse(message string, retryable bool) ports.RuntimeResponse {
	return ports.RuntimeResponse{
		Success:   false,
		Retryable: retryable,
		Error:     message,
	}
}
