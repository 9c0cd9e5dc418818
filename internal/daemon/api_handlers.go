package daemon

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"viralvision/internal/acquire"
	"viralvision/internal/api"
	"viralvision/internal/logging"
)

func (s *apiServer) handleSubmitScript(w http.ResponseWriter, r *http.Request) {
	var req api.ScriptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.svc.SubmitScript(r.Context(), accountFromRequest(r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleSubmitLink(w http.ResponseWriter, r *http.Request) {
	var req api.LinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.svc.SubmitLink(r.Context(), accountFromRequest(r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// handleSubmitUpload streams the multipart "file" field straight to the
// upload directory.
func (s *apiServer) handleSubmitUpload(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.maxUploadMB)<<20+multipartOverhead)
	}
	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart/form-data body")
		return
	}
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, `missing "file" field`)
			return
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
				return
			}
			writeError(w, http.StatusBadRequest, "malformed multipart body")
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}
		resp, err := s.svc.SubmitUpload(r.Context(), accountFromRequest(r), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}
	view, err := s.svc.Poll(r.Context(), accountFromRequest(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	jobs, err := s.svc.ListJobs(r.Context(), accountFromRequest(r), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: jobs})
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context(), accountFromRequest(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handleAccount(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Account(r.Context(), accountFromRequest(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: api.FromDependencies(status.Dependencies),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// statusForError maps service sentinels onto HTTP status codes.
func statusForError(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, acquire.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, api.ErrAdmissionDenied):
		return http.StatusPaymentRequired
	case errors.Is(err, api.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrUnknownAccount):
		return http.StatusUnauthorized
	case errors.Is(err, api.ErrJobNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}
