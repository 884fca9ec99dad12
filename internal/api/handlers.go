package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/p-n-ai/pai-academy/internal/access"
	"github.com/p-n-ai/pai-academy/internal/grading"
)

// submitRequest is the body of every quiz, test and exam submission.
type submitRequest struct {
	Answers []grading.Answer `json:"answers" validate:"required,min=1,dive"`
}

type reissueRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// decode reads a JSON body into v and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func identity(r *http.Request) *access.Identity {
	return access.IdentityFromContext(r.Context())
}

// Access decisions

func (s *Server) handleLessonAccess(w http.ResponseWriter, r *http.Request) {
	d, err := s.recorder.Evaluator().CanAccessLesson(r.Context(), identity(r), chi.URLParam(r, "lessonID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondDecision(w, d)
}

func (s *Server) handleChapterTestAccess(w http.ResponseWriter, r *http.Request) {
	d, err := s.recorder.Evaluator().CanAccessChapterTest(r.Context(), identity(r), chi.URLParam(r, "chapterID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondDecision(w, d)
}

func (s *Server) handleFinalExamAccess(w http.ResponseWriter, r *http.Request) {
	d, err := s.recorder.Evaluator().CanAccessFinalExam(r.Context(), identity(r), chi.URLParam(r, "courseID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondDecision(w, d)
}

// Cooldowns

func (s *Server) handleChapterTestCooldown(w http.ResponseWriter, r *http.Request) {
	cd, err := s.recorder.CheckChapterTestCooldown(r.Context(), identity(r), chi.URLParam(r, "chapterID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cd)
}

func (s *Server) handleFinalExamCooldown(w http.ResponseWriter, r *http.Request) {
	cd, err := s.recorder.CheckFinalExamCooldown(r.Context(), identity(r), chi.URLParam(r, "courseID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cd)
}

// Sessions and submissions

func (s *Server) handleSubmitLessonQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.recorder.SubmitLessonQuiz(r.Context(), identity(r), chi.URLParam(r, "lessonID"), req.Answers)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOutcome(w, out)
}

func (s *Server) handleStartChapterTest(w http.ResponseWriter, r *http.Request) {
	out, err := s.recorder.StartChapterTest(r.Context(), identity(r), chi.URLParam(r, "chapterID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOutcome(w, out)
}

func (s *Server) handleSubmitChapterTest(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.recorder.SubmitChapterTest(r.Context(), identity(r), chi.URLParam(r, "chapterID"), req.Answers)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOutcome(w, out)
}

func (s *Server) handleStartFinalExam(w http.ResponseWriter, r *http.Request) {
	out, err := s.recorder.StartFinalExam(r.Context(), identity(r), chi.URLParam(r, "courseID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOutcome(w, out)
}

func (s *Server) handleSubmitFinalExam(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !s.decode(w, r, &req) {
		return
	}
	out, err := s.recorder.SubmitFinalExam(r.Context(), identity(r), chi.URLParam(r, "courseID"), req.Answers)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondOutcome(w, out)
}

// Progress

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.recorder.Progress(r.Context(), identity(r), chi.URLParam(r, "courseID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleExportProgress(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "courseID")
	course, err := s.catalog.GetCourse(r.Context(), courseID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	chapters, err := s.catalog.ListChaptersOfCourse(r.Context(), courseID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	records, err := s.store.ListByCourse(r.Context(), courseID)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-progress.xlsx"`, course.ID))
	if err := writeGradebook(w, course, chapters, records); err != nil {
		slog.Error("failed to write gradebook", "course_id", courseID, "error", err)
	}
}

// Certificates

func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	if id == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	certs, err := s.certs.ListByUser(r.Context(), id.UserID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, certs)
}

func (s *Server) handleVerifyCertificate(w http.ResponseWriter, r *http.Request) {
	cert, err := s.certs.Verify(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, cert)
}

func (s *Server) handleReissueCertificates(w http.ResponseWriter, r *http.Request) {
	var req reissueRequest
	if !s.decode(w, r, &req) {
		return
	}
	certs, err := s.recorder.ReissueCertificates(r.Context(), identity(r), req.UserID, chi.URLParam(r, "courseID"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, certs)
}

