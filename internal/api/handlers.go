package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"storyloom/internal/analyze"
	"storyloom/internal/export"
	"storyloom/internal/model"
	"storyloom/internal/store"
)

const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg, "status": status})
}

// statusFor maps storage and validation errors onto HTTP status codes.
func statusFor(err error) int {
	var structErr *analyze.StructureError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrExists):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidName), errors.As(err, &structErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON data: %w", err)
	}
	return nil
}

type storyRef struct {
	Campaign string `validate:"required"`
	Story    string `validate:"required"`
}

func refFromQuery(r *http.Request) (storyRef, error) {
	q := r.URL.Query()
	ref := storyRef{Campaign: strings.TrimSpace(q.Get("campaign")), Story: strings.TrimSpace(q.Get("story"))}
	if err := validateStruct(ref); err != nil {
		return ref, err
	}
	return ref, nil
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) (*model.Story, storyRef, bool) {
	ref, err := refFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, ref, false
	}
	doc, err := s.store.LoadStory(r.Context(), ref.Campaign, ref.Story)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return nil, ref, false
	}
	s.metrics.StoriesLoaded.Inc()
	return doc, ref, true
}

func (s *Server) listCampaigns(w http.ResponseWriter, r *http.Request) {
	camps, err := s.store.ListCampaigns(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": camps})
}

type createCampaignRequest struct {
	Name string `json:"name" validate:"required,max=100,excludesall=/\\"`
}

func (s *Server) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.CreateCampaign(r.Context(), strings.TrimSpace(req.Name)); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "campaign": req.Name})
}

func (s *Server) listStories(w http.ResponseWriter, r *http.Request) {
	campaign := strings.TrimSpace(r.URL.Query().Get("campaign"))
	if campaign == "" {
		writeError(w, http.StatusBadRequest, "Missing campaign parameter")
		return
	}
	stories, err := s.store.ListStories(r.Context(), campaign)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stories": stories})
}

func (s *Server) getStory(w http.ResponseWriter, r *http.Request) {
	doc, _, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	doc, _, ok := s.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analyze.ComputeStatistics(doc))
}

func (s *Server) analysis(w http.ResponseWriter, r *http.Request) {
	doc, _, ok := s.load(w, r)
	if !ok {
		return
	}
	issues := analyze.DetectIssues(doc)
	if issues == nil {
		issues = []analyze.Issue{}
	}
	paths := analyze.EnumeratePaths(doc, s.maxDepth)
	if paths == nil {
		paths = [][]string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"issues":     issues,
		"paths":      paths,
		"statistics": analyze.ComputeStatistics(doc),
		"orphans":    orEmpty(analyze.Orphans(doc)),
	})
}

func (s *Server) exportStory(w http.ResponseWriter, r *http.Request) {
	doc, _, ok := s.load(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("format")
	if raw == "" {
		raw = string(export.FormatJSON)
	}
	f, err := export.ParseFormat(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := export.Render(doc, f, export.Options{})
	if err != nil {
		if errors.Is(err, export.ErrNotImplemented) {
			writeError(w, http.StatusNotImplemented, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(doc, f)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	doc, ref, ok := s.load(w, r)
	if !ok {
		return
	}
	var opt export.Options
	if r.URL.Query().Get("live") != "" {
		q := url.Values{"campaign": {ref.Campaign}, "story": {ref.Story}}
		opt.LiveURL = "/api/story/events?" + q.Encode()
	}
	page, err := export.HTML(doc, opt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

type saveRequest struct {
	Campaign string       `json:"campaign" validate:"required"`
	Story    string       `json:"story" validate:"required"`
	Data     *model.Story `json:"data" validate:"required"`
}

func (s *Server) saveStory(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if err := validateStruct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if err := s.store.SaveStory(r.Context(), req.Campaign, req.Story, req.Data); err != nil {
		status := statusFor(err)
		reason := "storage"
		if status == http.StatusBadRequest {
			reason = "invalid"
		}
		s.metrics.SaveFailures.WithLabelValues(reason).Inc()
		s.log.Warn("save story failed",
			zap.String("campaign", req.Campaign),
			zap.String("story", req.Story),
			zap.Error(err),
		)
		writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
		return
	}
	s.metrics.StoriesSaved.Inc()
	s.Notify(store.StoryChange{Campaign: req.Campaign, Story: req.Story})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "saved"})
}

type validateRequest struct {
	Data *model.Story `json:"data" validate:"required"`
}

func (s *Server) validateStory(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing story data")
		return
	}
	rep := analyze.Validate(req.Data)
	msg := "ok"
	if !rep.Valid {
		msg = fmt.Sprintf("%d error(s), %d warning(s)", rep.Errors, rep.Warnings)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":   rep.Valid,
		"message": msg,
		"report":  rep,
	})
}

type newStoryRequest struct {
	Title string `json:"title" validate:"max=200"`
	// Campaign and Story, when both set, also write the new story to disk.
	Campaign string `json:"campaign" validate:"required_with=Story"`
	Story    string `json:"story" validate:"required_with=Campaign"`
}

func (s *Server) newStory(w http.ResponseWriter, r *http.Request) {
	var req newStoryRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := validateStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc := store.NewStory(req.Title)
	if req.Campaign == "" {
		writeJSON(w, http.StatusOK, doc)
		return
	}
	if err := s.store.CreateStory(r.Context(), req.Campaign, req.Story, doc); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.metrics.StoriesSaved.Inc()
	writeJSON(w, http.StatusCreated, doc)
}

func orEmpty(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
