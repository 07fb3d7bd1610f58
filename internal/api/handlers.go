package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"comicadmin/internal/admin"
	"comicadmin/internal/logging"
	"comicadmin/internal/services"
	"comicadmin/internal/settings"
	"comicadmin/internal/urlcache"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListComics(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.View(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetComic(w http.ResponseWriter, r *http.Request) {
	ctx := services.WithEntityID(r.Context(), chi.URLParam(r, "id"))
	entry, err := s.svc.Entry(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.readSubmission(w, r)
	if !ok {
		return
	}
	report, err := s.svc.SaveData(r.Context(), sub)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, SaveResponse{
		Revision: report.Revision,
		Message:  report.Message,
		Delta:    report.Delta,
		Stubs:    report.Stubs,
	})
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.readSubmission(w, r)
	if !ok {
		return
	}
	plan, err := s.svc.PlanSave(r.Context(), sub)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		key = urlcache.KeyOriginalImage
	}
	res, err := s.svc.ResolveURL(r.Context(), id, key)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := ResolveResponse{
		ID:        id,
		Key:       key,
		URL:       res.URL,
		Found:     res.Found,
		FromCache: res.FromCache,
	}
	if res.PersistErr != nil {
		resp.PersistError = res.PersistErr.Error()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetURLCache(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := s.svc.CachedURLs(id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, URLCacheEntry{ID: id, Entries: entry})
}

func (s *Server) handleUpdateURLCache(w http.ResponseWriter, r *http.Request) {
	var req URLCacheUpdate
	if !s.decodeJSON(w, r, &req) {
		return
	}
	stored, err := s.svc.UpdateExternalURLCache(r.Context(), strings.TrimSpace(req.ID), req.URL, strings.TrimSpace(req.Key))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, URLCacheUpdate{ID: req.ID, Key: req.Key, URL: stored})
}

func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	cat, err := s.svc.Characters()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cat)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	value, err := s.svc.Settings(chi.URLParam(r, "user"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, value)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var value settings.Settings
	if !s.decodeJSON(w, r, &value) {
		return
	}
	user := chi.URLParam(r, "user")
	if err := s.svc.PutSettings(user, value); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, value)
}

func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (admin.Submission, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("read body: %v", err))
		return admin.Submission{}, false
	}
	sub, err := admin.DecodeSubmission(body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return admin.Submission{}, false
	}
	return sub, true
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.String(logging.FieldEventType, "api_request_failed"),
			logging.String("path", r.URL.Path),
			logging.Error(err))
	}
	s.writeError(w, r, status, err.Error())
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	requestID, _ := services.RequestIDFromContext(r.Context())
	s.writeJSON(w, status, ErrorResponse{Error: message, RequestID: requestID})
}
