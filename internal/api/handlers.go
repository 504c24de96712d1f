// Package api is the thin HTTP layer over the workflow engine. Handlers
// decode, delegate, and encode; every decision stays in the workflow
// packages.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"loan-workflow/internal/clients"
	wferr "loan-workflow/internal/common/errors"
	"loan-workflow/internal/common/logger"
	"loan-workflow/internal/models"
	"loan-workflow/internal/verification"
	"loan-workflow/internal/workflow/evaluator"
	"loan-workflow/internal/workflow/navigator"
	"loan-workflow/internal/workflow/statemachine"
)

type Handler struct {
	loader    *evaluator.Loader
	navigator *navigator.Navigator
	machine   *statemachine.Machine
	orch      *verification.Orchestrator
	logger    logger.Logger
}

func NewHandler(
	loader *evaluator.Loader,
	nav *navigator.Navigator,
	machine *statemachine.Machine,
	orch *verification.Orchestrator,
	log logger.Logger,
) *Handler {
	return &Handler{
		loader:    loader,
		navigator: nav,
		machine:   machine,
		orch:      orch,
		logger:    log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// ==========================
// Steps and completeness
// ==========================

type stepsResponse struct {
	ApplicationID string                `json:"applicationId"`
	Status        string                `json:"status"`
	Steps         []navigator.StepState `json:"steps"`
	Aggregate     int                   `json:"aggregate"`
}

func (h *Handler) handleSteps(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "id")

	in, snap, err := h.loader.InputsAndSnapshot(r.Context(), applicationID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stepsResponse{
		ApplicationID: applicationID,
		Status:        string(in.Application.Status),
		Steps:         h.navigator.Plan(in.Application, &snap),
		Aggregate:     snap.Aggregate,
	})
}

func (h *Handler) handleCompleteness(w http.ResponseWriter, r *http.Request) {
	snap, err := h.loader.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ==========================
// Submission
// ==========================

type submitResponse struct {
	ApplicationID string `json:"applicationId"`
	Status        string `json:"status"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	applicationID := chi.URLParam(r, "id")
	idempotencyKey := r.Header.Get(clients.IdempotencyKeyHeader)
	if idempotencyKey == "" {
		writeError(w, wferr.NewValidationFailed("Idempotency-Key header is required"))
		return
	}

	status, err := h.machine.Submit(r.Context(), applicationID, idempotencyKey)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{ApplicationID: applicationID, Status: string(status)})
}

// ==========================
// Verifications
// ==========================

func verificationKind(r *http.Request) (models.VerificationKind, error) {
	kind := models.VerificationKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		return "", wferr.NewValidationFailed("verification kind must be bank, bureau or identity")
	}
	return kind, nil
}

func (h *Handler) handleStartVerification(w http.ResponseWriter, r *http.Request) {
	kind, err := verificationKind(r)
	if err != nil {
		writeError(w, err)
		return
	}

	job, err := h.orch.StartJob(r.Context(), chi.URLParam(r, "id"), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *Handler) handleVerificationStatus(w http.ResponseWriter, r *http.Request) {
	kind, err := verificationKind(r)
	if err != nil {
		writeError(w, err)
		return
	}

	job, err := h.orch.Status(r.Context(), chi.URLParam(r, "id"), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) handleCancelVerification(w http.ResponseWriter, r *http.Request) {
	kind, err := verificationKind(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if !h.orch.Cancel(chi.URLParam(r, "id"), kind) {
		writeError(w, wferr.NewNotFound("verification watcher", string(kind)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type otpRequest struct {
	OTP string `json:"otp"`
}

func (h *Handler) handleSubmitOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OTP == "" {
		writeError(w, wferr.NewValidationFailed("body must carry a non-empty otp"))
		return
	}

	if err := h.orch.SubmitOTP(r.Context(), chi.URLParam(r, "id"), req.OTP); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ==========================
// Push events
// ==========================

func (h *Handler) handleStatusEvent(w http.ResponseWriter, r *http.Request) {
	event, err := parseStatusEvent(r)
	if err != nil {
		writeError(w, err)
		return
	}

	status, err := h.machine.ApplyRemoteStatus(r.Context(), event.ApplicationID, models.ApplicationStatus(event.Status))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{ApplicationID: event.ApplicationID, Status: string(status)})
}
