package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/anuragparashar26/skillscreen/internal/export"
	"github.com/anuragparashar26/skillscreen/internal/pipeline"
	"github.com/anuragparashar26/skillscreen/internal/resumes"
	"github.com/anuragparashar26/skillscreen/internal/store"
	"go.uber.org/zap"
)

var errBadRequest = errors.New("bad request")

type resumePayload struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

type evaluationRequest struct {
	JobTitle       string          `json:"job_title"`
	JobDescription string          `json:"job_description"`
	Resumes        []resumePayload `json:"resumes"`
}

type evaluationResponse struct {
	store.Evaluation
	BatchID string         `json:"batch_id"`
	Stats   pipeline.Stats `json:"stats"`
	Saved   bool           `json:"saved"`
}

func (s *Server) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	req, err := s.decodeEvaluationRequest(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	inputs := s.resumeInputs(req.Resumes)
	result, err := s.evaluator.Evaluate(r.Context(), req.JobDescription, inputs)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	resp := evaluationResponse{
		Evaluation: store.Evaluation{
			JobTitle:       req.JobTitle,
			JobDescription: req.JobDescription,
			Results:        result.Candidates,
		},
		BatchID: result.BatchID,
		Stats:   result.Stats,
	}

	status := http.StatusOK
	if s.store != nil {
		id, err := s.store.Save(r.Context(), resp.Evaluation)
		if err != nil {
			s.logger.Warn("saving evaluation failed", zap.String("batch_id", result.BatchID), zap.Error(err))
		} else {
			saved, err := s.store.Get(r.Context(), id)
			if err == nil {
				resp.Evaluation = *saved
			} else {
				resp.ID = id
			}
			resp.Saved = true
			status = http.StatusCreated
		}
	}

	s.jsonResponse(w, status, resp)
}

// decodeEvaluationRequest accepts a JSON body or a multipart form with
// job_title, job_description and one or more "resumes" files.
func (s *Server) decodeEvaluationRequest(r *http.Request) (*evaluationRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return s.decodeMultipart(r)
	}

	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return &req, nil
}

func (s *Server) decodeMultipart(r *http.Request) (*evaluationRequest, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, fmt.Errorf("%w: invalid multipart body: %v", errBadRequest, err)
	}

	req := &evaluationRequest{
		JobTitle:       r.FormValue("job_title"),
		JobDescription: r.FormValue("job_description"),
	}
	for _, fh := range r.MultipartForm.File["resumes"] {
		text := resumes.OversizePlaceholder(fh.Filename, s.cfg.MaxUploadBytes)
		if fh.Size <= s.cfg.MaxUploadBytes {
			text = readUpload(fh, s.cfg.MaxUploadBytes)
		}
		req.Resumes = append(req.Resumes, resumePayload{Filename: fh.Filename, Text: text})
	}
	return req, nil
}

func readUpload(fh *multipart.FileHeader, maxBytes int64) string {
	f, err := fh.Open()
	if err != nil {
		return resumes.ReadErrorPlaceholder(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return resumes.ReadErrorPlaceholder(err)
	}
	return resumes.FromBytes(fh.Filename, data, maxBytes)
}

// resumeInputs fills missing ids from filenames and replaces oversize text.
func (s *Server) resumeInputs(payload []resumePayload) []pipeline.ResumeInput {
	var (
		inputs   = make([]pipeline.ResumeInput, len(payload))
		explicit []string
		derived  []string
		slots    []int
	)
	for i, p := range payload {
		inputs[i] = pipeline.ResumeInput{ID: p.ID, Filename: p.Filename, Text: p.Text}
		if int64(len(p.Text)) > s.cfg.MaxUploadBytes {
			inputs[i].Text = resumes.OversizePlaceholder(inputs[i].DisplayName(), s.cfg.MaxUploadBytes)
		}
		switch {
		case strings.TrimSpace(p.ID) != "":
			explicit = append(explicit, p.ID)
		case strings.TrimSpace(p.Filename) != "":
			derived = append(derived, p.Filename)
			slots = append(slots, i)
		}
	}
	// Derived ids must not collide with ids the caller chose.
	for n, id := range resumes.UniqueIDs(derived, explicit...) {
		inputs[slots[n]].ID = id
	}
	return inputs
}

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	items, err := s.store.List(r.Context())
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if items == nil {
		items = []store.Summary{}
	}
	s.jsonResponse(w, http.StatusOK, items)
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	ev, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportEvaluation(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	ev, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "evaluation-"+ev.ID+".csv"))
	if err := export.WriteCSV(w, ev.Results); err != nil {
		s.logger.Warn("writing csv export failed", zap.String("id", ev.ID), zap.Error(err))
	}
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		s.errorResponse(w, http.StatusNotImplemented, "evaluation history is disabled")
		return false
	}
	return true
}
