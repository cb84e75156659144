package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/finimport/internal/core"
	"github.com/JonMunkholm/finimport/internal/logging"
)

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and headers.
const multipartOverhead = 1 << 20

// handleUpload parses a multipart "file" and creates a pending session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner := core.OwnerIDFromContext(r.Context())

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondError(w, r, core.ErrFileTooLarge)
			return
		}
		respondError(w, r, core.ErrNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	result, err := s.service.Upload(r.Context(), owner, header.Filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	owner, id := core.OwnerIDFromContext(r.Context()), chi.URLParam(r, "importID")

	c, err := s.service.Analyze(r.Context(), owner, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	owner, id := core.OwnerIDFromContext(r.Context()), chi.URLParam(r, "importID")

	var req mappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	rows, err := s.service.Preview(r.Context(), owner, id, req.ColumnMappings)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mappedData": rows})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	owner, id := core.OwnerIDFromContext(r.Context()), chi.URLParam(r, "importID")

	var req validateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	result, err := s.service.Validate(r.Context(), owner, id, req.ColumnMappings)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleConfirmMapping(w http.ResponseWriter, r *http.Request) {
	owner, id := core.OwnerIDFromContext(r.Context()), chi.URLParam(r, "importID")

	var req mappingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	session, err := s.service.ConfirmMapping(r.Context(), owner, id, req.ColumnMappings)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleExecute runs the import. A storage failure mid-run still returns the
// partial summary alongside the error.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	owner, id := core.OwnerIDFromContext(r.Context()), chi.URLParam(r, "importID")

	var req executeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	summary, err := s.service.Execute(r.Context(), owner, id, req.Options)
	if err != nil {
		if summary.ImportID == "" {
			respondError(w, r, err)
			return
		}
		msg := core.MapError(err)
		logging.ForImport(r.Context(), id).Error("import failed", "error", err, "code", msg.Code)
		writeJSON(w, statusFor(err), map[string]any{
			"summary": summary,
			"error":   ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code},
		})
		return
	}

	logging.ForImport(r.Context(), id).Info("import executed",
		"imported", summary.ImportedCount,
		"failed", summary.FailedCount,
		"duplicates", summary.DuplicateCount,
	)
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	owner := core.OwnerIDFromContext(r.Context())

	page := parseIntParam(r, "page", 1)
	limit := parseIntParam(r, "limit", core.DefaultHistoryLimit)
	status := core.Status(r.URL.Query().Get("status"))

	result, err := s.service.History(r.Context(), owner, page, limit, status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	owner, id := core.OwnerIDFromContext(r.Context()), chi.URLParam(r, "importID")

	session, err := s.service.Get(r.Context(), owner, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	owner, id := core.OwnerIDFromContext(r.Context()), chi.URLParam(r, "importID")

	if err := s.service.Delete(r.Context(), owner, id); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	resp := map[string]any{"executions": s.service.LimiterStatus()}

	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			logging.FromContext(r.Context()).Error("health check failed", "error", err)
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	resp["status"] = status
	writeJSON(w, code, resp)
}
