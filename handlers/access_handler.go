package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"stoicPathAPI/internal/path"
	"stoicPathAPI/middleware"
	"stoicPathAPI/services"
)

type AccessHandler struct {
	accessService *services.AccessService
}

func NewAccessHandler(accessService *services.AccessService) *AccessHandler {
	return &AccessHandler{accessService: accessService}
}

type unlockPathsRequest struct {
	PathsToAdd interface{} `json:"pathsToAdd"`
	UnlockCode string      `json:"unlockCode"`
}

// UnlockPaths redeems an unlock code for the authenticated user and adds
// the granted tracks to their unlocked set.
func (h *AccessHandler) UnlockPaths(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req unlockPathsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UnlockCode == "" {
		respondWithError(w, http.StatusBadRequest, "unlockCode is required")
		return
	}

	selected, err := path.FromJSON(req.PathsToAdd)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid pathsToAdd value")
		return
	}

	granted, err := h.accessService.UnlockAndAddPaths(ctx, uid, selected, req.UnlockCode)
	if errors.Is(err, services.ErrNoNewPaths) {
		// Valid code, nothing new to grant. The code stays unclaimed.
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "You already have access to everything this code unlocks.",
		})
		return
	}
	if err != nil {
		log.Printf("UnlockPaths failed for %s: %v", uid, err)
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "New paths unlocked.",
		"paths":   granted.ToFirestore(),
	})
}

type switchPathRequest struct {
	NewTrackID string `json:"newTrackId"`
}

// SwitchPath makes a different unlocked track active, snapshotting its
// content into a fresh namespace unless today's already exists.
func (h *AccessHandler) SwitchPath(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req switchPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.NewTrackID == "" {
		respondWithError(w, http.StatusBadRequest, "newTrackId is required")
		return
	}

	if err := h.accessService.SwitchActivePath(ctx, uid, req.NewTrackID); err != nil {
		log.Printf("SwitchPath failed for %s -> %s: %v", uid, req.NewTrackID, err)
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Successfully switched active challenge path.",
	})
}
