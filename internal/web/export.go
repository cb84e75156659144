package web

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/finimport/internal/core"
	"github.com/JonMunkholm/finimport/internal/logging"
)

var rowErrorPattern = regexp.MustCompile(`^Row (\d+): (.*)$`)

// handleExportErrors streams the session's full error list as CSV with
// columns row and error. Errors not tied to a row have an empty row cell.
func (s *Server) handleExportErrors(w http.ResponseWriter, r *http.Request) {
	owner, id := core.OwnerIDFromContext(r.Context()), chi.URLParam(r, "importID")

	session, err := s.service.Get(r.Context(), owner, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "import-"+session.ID+"-errors.csv"))

	cw := csv.NewWriter(w)
	records := [][]string{{"row", "error"}}
	for _, e := range session.ImportErrors {
		if m := rowErrorPattern.FindStringSubmatch(e); m != nil {
			records = append(records, []string{m[1], m[2]})
		} else {
			records = append(records, []string{"", e})
		}
	}
	if session.FailureReason != "" {
		records = append(records, []string{"", session.FailureReason})
	}

	if err := cw.WriteAll(records); err != nil {
		logging.ForImport(r.Context(), id).Error("export errors csv", "error", err)
	}
}
