package api

import (
	"net/http"

	"github.com/amagraneronline/curso-python/internal/progress"
)

type quizRequest struct {
	Answers map[string]int `json:"answers"`
}

type codeRequest struct {
	Code string `json:"code"`
}

// challengeResponse flattens a grading result. Unavailable grading is a
// normal 200 answer with Unavailable set and ErrorCode filled in.
type challengeResponse struct {
	ModuleID    string `json:"module_id"`
	Output      string `json:"output"`
	Feedback    string `json:"feedback"`
	Success     bool   `json:"success"`
	Unavailable bool   `json:"unavailable"`
	ErrorCode   string `json:"error_code,omitempty"`
	Stale       bool   `json:"stale"`
	NextView    string `json:"next_view,omitempty"`
}

func learnerFrom(r *http.Request) progress.Learner {
	a := accountFrom(r.Context())
	return progress.Learner{ID: a.ID, Name: a.Name}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	ov, err := s.progress.Overview(r.Context(), learnerFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	m, err := s.progress.Module(r.Context(), learnerFrom(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.progress.SubmitQuiz(r.Context(), learnerFrom(r), r.PathValue("id"), req.Answers)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.progress.GradeChallenge(r.Context(), learnerFrom(r), r.PathValue("id"), req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := challengeResponse{
		ModuleID:    res.ModuleID,
		Output:      res.Result.Output,
		Feedback:    res.Result.Feedback,
		Success:     res.Result.Success,
		Unavailable: res.Result.Unavailable(),
		Stale:       res.Stale,
		NextView:    res.NextView,
	}
	if out.Unavailable {
		out.ErrorCode = CodeGradingUnavailable
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req codeRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.progress.SubmitUnlockCode(r.Context(), learnerFrom(r), req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
