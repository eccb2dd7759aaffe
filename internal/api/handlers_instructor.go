package api

import (
	"bytes"
	"net/http"

	"github.com/amagraneronline/curso-python/internal/dashboard"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type classroomResponse struct {
	Learners     []dashboard.LearnerReport `json:"learners"`
	ClassAverage int                       `json:"class_average"`
}

func (s *Server) handleClassroom(w http.ResponseWriter, r *http.Request) {
	rows, err := s.dashboard.Classroom(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, classroomResponse{
		Learners:     rows,
		ClassAverage: dashboard.ClassAverage(rows),
	})
}

func (s *Server) handleLearnerReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.dashboard.LearnerReport(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	days, err := s.dashboard.WeeklyActivity(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

// Exports are buffered so a failure can still produce a JSON error.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.dashboard.ExportCSV(r.Context(), &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, "text/csv; charset=utf-8", "alumnado.csv", buf.Bytes())
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.dashboard.ExportXLSX(r.Context(), &buf); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeAttachment(w, xlsxContentType, "alumnado.xlsx", buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
