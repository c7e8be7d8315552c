package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dooyeoung/medops-sub001/core/es"
	"github.com/dooyeoung/medops-sub001/core/medrec"
	"github.com/dooyeoung/medops-sub001/core/verify"
)

type recordResponse struct {
	ID               string    `json:"id"`
	Version          uint64    `json:"version"`
	Status           string    `json:"status"`
	PatientID        string    `json:"patient_id"`
	HospitalID       string    `json:"hospital_id"`
	ScheduledAt      time.Time `json:"scheduled_at"`
	AssignedDoctorID string    `json:"assigned_doctor_id,omitempty"`
	Note             string    `json:"note,omitempty"`
}

func toRecordResponse(r *medrec.Record) recordResponse {
	return recordResponse{
		ID:               r.GetID(),
		Version:          r.GetVersion().Uint64(),
		Status:           string(r.Status),
		PatientID:        r.PatientID,
		HospitalID:       r.HospitalID,
		ScheduledAt:      r.ScheduledAt,
		AssignedDoctorID: r.AssignedDoctorID,
		Note:             r.Note,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps domain and infrastructure errors onto HTTP statuses.
func (s *server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, medrec.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, es.ErrAggregateNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, verify.ErrCodeNotFound):
		writeError(w, http.StatusNotFound, "verification code not found")
	case errors.Is(err, es.ErrConcurrencyConflict):
		writeError(w, http.StatusConflict, "write conflict, retry the request")
	default:
		s.log.Error(
			"request failed",
			slog.Any("err", err),
			slog.String("path", r.URL.Path),
			slog.String("request_id", RequestIDFrom(r.Context())),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type createReservationRequest struct {
	PatientID   string    `json:"patient_id"`
	HospitalID  string    `json:"hospital_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

func (s *server) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PatientID == "" || req.HospitalID == "" {
		writeError(w, http.StatusBadRequest, "patient_id and hospital_id are required")
		return
	}

	rec, err := s.records.CreateReservation(r.Context(), medrec.CreateReservationCmd{
		ReservationID: uuid.NewString(),
		PatientID:     req.PatientID,
		HospitalID:    req.HospitalID,
		ScheduledAt:   req.ScheduledAt,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordResponse(rec))
}

func (s *server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Get(r.Context(), chi.URLParam(r, "reservationID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (s *server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Confirm(r.Context(), chi.URLParam(r, "reservationID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (s *server) handleRequeue(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := s.records.Requeue(r.Context(), chi.URLParam(r, "reservationID"), req.Reason)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

type assignDoctorRequest struct {
	DoctorID string `json:"doctor_id"`
}

func (s *server) handleAssignDoctor(w http.ResponseWriter, r *http.Request) {
	var req assignDoctorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DoctorID == "" {
		writeError(w, http.StatusBadRequest, "doctor_id is required")
		return
	}
	rec, err := s.records.AssignDoctor(r.Context(), chi.URLParam(r, "reservationID"), req.DoctorID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

type noteRequest struct {
	Note string `json:"note"`
}

func (s *server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := s.records.UpdateNote(r.Context(), chi.URLParam(r, "reservationID"), req.Note)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (s *server) handleComplete(w http.ResponseWriter, r *http.Request) {
	rec, err := s.records.Complete(r.Context(), chi.URLParam(r, "reservationID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := s.records.Cancel(r.Context(), chi.URLParam(r, "reservationID"), req.Reason)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

type sendVerificationRequest struct {
	Email      string `json:"email"`
	HospitalID string `json:"hospital_id"`
}

func (s *server) handleSendVerification(w http.ResponseWriter, r *http.Request) {
	var req sendVerificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	code, err := s.verifier.GenerateCode()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.verifier.Save(r.Context(), req.Email, code, req.HospitalID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	// Delivery is out of scope here; the code travels via a separate channel.
	s.log.Info("verification code issued", slog.String("email", req.Email))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

type checkVerificationRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (s *server) handleCheckVerification(w http.ResponseWriter, r *http.Request) {
	var req checkVerificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "email and code are required")
		return
	}

	entry, err := s.verifier.Get(r.Context(), req.Email)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(req.Code)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid verification code")
		return
	}
	if err := s.verifier.Remove(r.Context(), req.Email); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "verified",
		"hospital_id": entry.HospitalID,
	})
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
