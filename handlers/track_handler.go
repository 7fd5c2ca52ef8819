package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"stoicPathAPI/internal/track"
	"stoicPathAPI/services"
)

type TrackHandler struct {
	trackService    *services.TrackService
	snapshotService *services.SnapshotService
	auditService    *services.AuditService
}

func NewTrackHandler(trackService *services.TrackService, snapshotService *services.SnapshotService, auditService *services.AuditService) *TrackHandler {
	return &TrackHandler{
		trackService:    trackService,
		snapshotService: snapshotService,
		auditService:    auditService,
	}
}

func (h *TrackHandler) ListTracks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	tracks, err := h.trackService.ListTracks(ctx)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tracks)
}

func (h *TrackHandler) GetTrack(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	slug := mux.Vars(r)["slug"]
	t, templates, err := h.trackService.GetTrackBySlug(ctx, slug)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"track":      t,
		"challenges": templates,
	})
}

type updateWeeksRequest struct {
	Weeks []track.Week `json:"weeks"`
}

// UpdateWeeks is the backstage week-name editor. Changes reach users only
// through future snapshots.
func (h *TrackHandler) UpdateWeeks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	trackID := mux.Vars(r)["id"]

	var req updateWeeksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Weeks) == 0 {
		respondWithError(w, http.StatusBadRequest, "weeks must not be empty")
		return
	}

	if err := h.trackService.UpdateWeeks(ctx, trackID, req.Weeks); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Weeks updated"})
}

// UpsertChallenge is the backstage day-content editor.
func (h *TrackHandler) UpsertChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	vars := mux.Vars(r)
	day, err := strconv.Atoi(vars["day"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid day")
		return
	}

	var tpl track.ChallengeTemplate
	if err := json.NewDecoder(r.Body).Decode(&tpl); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	tpl.Track = vars["track"]
	tpl.Day = day

	if err := h.trackService.UpsertChallenge(ctx, tpl); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Challenge saved"})
}

type backfillSnapshotRequest struct {
	UID       string `json:"uid"`
	TrackID   string `json:"trackId"`
	Namespace string `json:"namespace"`
}

// BackfillSnapshot is a support tool: it re-materializes a user's snapshot
// namespace after a partial failure. A namespace that already exists is
// left alone.
func (h *TrackHandler) BackfillSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req backfillSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UID == "" || req.TrackID == "" || req.Namespace == "" {
		respondWithError(w, http.StatusBadRequest, "uid, trackId and namespace are required")
		return
	}

	if err := h.snapshotService.Snapshot(ctx, req.UID, req.Namespace, req.TrackID); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Snapshot ensured"})
}

// RecentEvents is the backstage audit feed. Empty when no audit database
// is configured.
func (h *TrackHandler) RecentEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.auditService.RecentEvents(ctx, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, events)
}
