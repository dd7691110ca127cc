package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zaidkom/net-zero/internal/state"
)

// workflowDoc is the wire form of a workflow record.
type workflowDoc struct {
	ID            int    `json:"id"`
	Username      string `json:"username,omitempty"`
	Name          string `json:"name"`
	DataPrep      string `json:"data_prep"`
	Analysis      string `json:"analysis"`
	Visualisation string `json:"visualisation"`
}

func toDoc(wf *state.Workflow) workflowDoc {
	return workflowDoc{
		ID:            wf.ID,
		Username:      wf.Username,
		Name:          wf.Name,
		DataPrep:      wf.DataPrep,
		Analysis:      wf.Analysis,
		Visualisation: wf.Visualisation,
	}
}

func (s *Server) listWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := s.store.ListWorkflows(r.URL.Query().Get("username"))
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}

	docs := make([]workflowDoc, 0, len(workflows))
	for i := range workflows {
		docs = append(docs, toDoc(&workflows[i]))
	}
	s.respond(w, docs, http.StatusOK)
}

func (s *Server) createWorkflow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Name     string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, err, http.StatusBadRequest)
		return
	}
	if body.Name == "" {
		s.fail(w, errors.New("name is required"), http.StatusBadRequest)
		return
	}

	wf, err := s.store.CreateWorkflow(body.Username, body.Name)
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	s.respond(w, toDoc(wf), http.StatusOK)
}

func (s *Server) getWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, errors.New("invalid workflow id"), http.StatusBadRequest)
		return
	}

	wf, err := s.store.GetWorkflow(id)
	if errors.Is(err, state.ErrWorkflowNotFound) {
		s.fail(w, err, http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	s.respond(w, toDoc(wf), http.StatusOK)
}

func (s *Server) updateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, errors.New("invalid workflow id"), http.StatusBadRequest)
		return
	}

	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		s.fail(w, err, http.StatusBadRequest)
		return
	}

	wf, err := s.store.UpdateWorkflow(id, fields)
	if errors.Is(err, state.ErrWorkflowNotFound) {
		s.fail(w, err, http.StatusNotFound)
		return
	}
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	s.respond(w, toDoc(wf), http.StatusOK)
}

func (s *Server) deleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, errors.New("invalid workflow id"), http.StatusBadRequest)
		return
	}

	ok, err := s.store.DeleteWorkflow(id)
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	if !ok {
		s.fail(w, state.ErrWorkflowNotFound, http.StatusNotFound)
		return
	}
	s.respond(w, map[string]bool{"ok": true}, http.StatusOK)
}

func (s *Server) respond(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, err error, status int) {
	if status >= 500 {
		s.logger.Error("request failed", "error", err)
	}
	s.respond(w, map[string]string{"detail": err.Error()}, status)
}
