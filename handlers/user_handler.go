package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"stoicPathAPI/internal/path"
	"stoicPathAPI/internal/user"
	"stoicPathAPI/middleware"
	"stoicPathAPI/services"
)

type UserHandler struct {
	userService   *services.UserService
	accessService *services.AccessService
}

func NewUserHandler(userService *services.UserService, accessService *services.AccessService) *UserHandler {
	return &UserHandler{
		userService:   userService,
		accessService: accessService,
	}
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	profile, err := h.userService.GetProfile(ctx, uid)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	resp := user.ProfileResponse{
		ActivePath:          profile.ActivePath,
		ActiveChallengePath: profile.ActiveChallengePath,
		UnlockedPaths:       profile.UnlockedPaths.ToFirestore(),
		Reminders:           profile.Reminders,
	}
	if !profile.CreatedAt.IsZero() {
		resp.CreatedAt = profile.CreatedAt.Format(time.RFC3339)
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) UpdateReminders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.UpdateRemindersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reminders := &user.Reminders{
		PushEnabled:  req.PushEnabled,
		EmailEnabled: req.EmailEnabled,
		MorningTime:  req.MorningTime,
		EveningTime:  req.EveningTime,
		Timezone:     req.Timezone,
	}
	if err := h.userService.UpdateReminders(ctx, uid, reminders); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Reminders updated"})
}

// Signup is the createUserAndClaimCode flow: profile, first snapshot, and
// optional code claim, all or nothing.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SelectedTrackID == "" {
		respondWithError(w, http.StatusBadRequest, "selectedTrackId is required")
		return
	}

	initialPaths, err := path.FromJSON(req.UnlockedPaths)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid unlockedPaths value")
		return
	}

	err = h.accessService.CreateUserAndClaim(ctx, uid, req.SelectedTrackID, initialPaths, req.Reminders, req.UnlockCode)
	if err != nil {
		log.Printf("Signup failed for %s: %v", uid, err)
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "User profile created and code claimed successfully.",
	})
}

func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCodeNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrTrackNotFound),
		errors.Is(err, services.ErrDayNotFound),
		errors.Is(err, services.ErrNoActiveChallenge):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrCodeAlreadyClaimed),
		errors.Is(err, services.ErrUserExists):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrCodeInvalidFormat):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrPathNotUnlocked):
		respondWithError(w, http.StatusForbidden, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
