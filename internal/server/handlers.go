package server

import (
	"encoding/json"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"folio/internal/history"
	"folio/internal/logging"
	"folio/internal/portfolio"
	"folio/internal/snapshot"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

type staticStatusResponse struct {
	HasStaticFiles bool                      `json:"hasStaticFiles"`
	LastUpdate     *portfolio.UpdateMetadata `json:"lastUpdate"`
}

type syncResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	RunID   string               `json:"runId,omitempty"`
	Stats   *portfolio.SyncStats `json:"stats,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type healthResponse struct {
	Status         string           `json:"status"`
	HasStaticFiles bool             `json:"hasStaticFiles"`
	SyncInProgress bool             `json:"syncInProgress"`
	NextSync       *time.Time       `json:"nextSync,omitempty"`
	LastResult     *snapshot.Result `json:"lastResult,omitempty"`
}

type historyResponse struct {
	Runs []history.Run `json:"runs"`
}

// handleProfileData serves the snapshot, generating it when absent and
// falling back to the bundled static document.
func (s *Server) handleProfileData(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithContext(r.Context(), s.logger)

	data, err := s.store.Snapshot()
	if err == nil {
		s.writeRaw(w, data)
		return
	}
	logger.Info("snapshot unavailable; generating",
		logging.Error(err),
		logging.String(logging.FieldEventType, "snapshot_miss"),
	)

	ctx, cancel := s.passContext(r)
	result := s.gen.Generate(ctx, snapshot.TriggerOnDemand)
	cancel()
	if result.Success {
		if data, err = s.store.Snapshot(); err == nil {
			s.writeRaw(w, data)
			return
		}
	}

	data, err = s.store.Fallback()
	if err == nil {
		logging.WarnWithContext(logger, "serving fallback snapshot", "snapshot_fallback",
			logging.String("pass_error", result.Error),
			logging.String(logging.FieldErrorHint, "run 'folio sync' or POST /api/regenerate-static"),
			logging.String(logging.FieldImpact, "visitors see the bundled static profile"),
		)
		s.writeRaw(w, data)
		return
	}
	logging.ErrorWithContext(logger, "profile data not available", "snapshot_unavailable",
		logging.String("pass_error", result.Error),
		logging.Error(err),
	)
	s.writeError(w, http.StatusNotFound, "Profile data not available")
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/content/media/")
	if name == "" || strings.Contains(name, "/") || strings.HasPrefix(name, ".") || path.Clean(name) != name {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, filepath.Join(s.mediaDir, name))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:         "ok",
		HasStaticFiles: s.store.HasStaticFiles(),
		SyncInProgress: s.gen.InProgress(),
	}
	if schedule := s.currentSchedule(); schedule != nil {
		if next := schedule.NextSync(); !next.IsZero() {
			next = next.UTC()
			resp.NextSync = &next
		}
		resp.LastResult = schedule.LastResult()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStaticStatus(w http.ResponseWriter, _ *http.Request) {
	meta, err := s.store.Metadata()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, staticStatusResponse{
		HasStaticFiles: s.store.HasStaticFiles(),
		LastUpdate:     meta,
	})
}

func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusOK, historyResponse{Runs: []history.Run{}})
		return
	}
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}
	runs, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	s.writeJSON(w, http.StatusOK, historyResponse{Runs: runs})
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.passContext(r)
	defer cancel()
	result := s.gen.Generate(ctx, snapshot.TriggerAPI)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, result)
}

func (s *Server) handleSyncNotion(w http.ResponseWriter, r *http.Request) {
	if s.cache != nil {
		s.cache.Invalidate()
	}
	s.forceSync(w, r, "Content synchronized from Notion")
}

func (s *Server) handleSyncImages(w http.ResponseWriter, r *http.Request) {
	s.forceSync(w, r, "Images synchronized")
}

func (s *Server) forceSync(w http.ResponseWriter, r *http.Request, message string) {
	ctx, cancel := s.passContext(r)
	defer cancel()
	result := s.gen.Generate(ctx, snapshot.TriggerAPI)
	if !result.Success {
		s.writeJSON(w, http.StatusInternalServerError, syncResponse{
			Success: false,
			RunID:   result.RunID,
			Error:   result.Error,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, syncResponse{
		Success: true,
		Message: message,
		RunID:   result.RunID,
		Stats:   result.Stats,
	})
}

func (s *Server) writeRaw(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
