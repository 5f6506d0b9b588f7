package conversation

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/wolfman30/flymebot/pkg/logging"
)

var validate = validator.New()

const maxRequestBytes = 64 << 10

// Handler wires HTTP requests to the conversation service. Message runs a
// turn inline; Enqueue hands it to the worker pool and returns a job id.
type Handler struct {
	service  Service
	enqueuer Enqueuer
	jobs     JobRecorder
	logger   *logging.Logger
}

// NewHandler creates a conversation handler. enqueuer and jobs may be nil
// when only synchronous turns are served.
func NewHandler(service Service, enqueuer Enqueuer, jobs JobRecorder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:  service,
		enqueuer: enqueuer,
		jobs:     jobs,
		logger:   logger,
	}
}

// Message handles POST /conversations/message.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.Channel == ChannelUnknown {
		req.Channel = ChannelAPI
	}

	resp, err := h.service.ProcessMessage(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to process message", "error", err, "conversation_id", req.ConversationID)
		http.Error(w, "Failed to process message", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// Enqueue handles POST /conversations/jobs.
func (h *Handler) Enqueue(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil || h.jobs == nil {
		http.Error(w, "Async processing not configured", http.StatusNotImplemented)
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.Channel == ChannelUnknown {
		req.Channel = ChannelAPI
	}

	jobID := uuid.NewString()
	if err := h.jobs.PutPending(r.Context(), &JobRecord{
		JobID:          jobID,
		ConversationID: req.ConversationID,
		Request:        &req,
	}); err != nil {
		h.logger.Error("failed to persist job", "error", err)
		http.Error(w, "Failed to accept message", http.StatusInternalServerError)
		return
	}
	if err := h.enqueuer.EnqueueMessage(r.Context(), jobID, req); err != nil {
		h.logger.Error("failed to enqueue message", "error", err)
		http.Error(w, "Failed to accept message", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

// Job handles GET /conversations/jobs/{jobID}.
func (h *Handler) Job(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		http.Error(w, "Async processing not configured", http.StatusNotImplemented)
		return
	}
	jobID := strings.TrimSpace(chi.URLParam(r, "jobID"))
	if jobID == "" {
		http.Error(w, "jobID required", http.StatusBadRequest)
		return
	}

	job, err := h.jobs.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load job", "error", err, "job_id", jobID)
		http.Error(w, "Failed to load job", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, job)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (MessageRequest, bool) {
	var req MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode message request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	req.ConversationID = strings.TrimSpace(req.ConversationID)
	if err := validate.Struct(req); err != nil {
		http.Error(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
