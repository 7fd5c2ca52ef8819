package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"stoicPathAPI/internal/accesscode"
	"stoicPathAPI/internal/path"
	"stoicPathAPI/middleware"
	"stoicPathAPI/services"
)

type CodeHandler struct {
	codeService *services.CodeService
}

func NewCodeHandler(codeService *services.CodeService) *CodeHandler {
	return &CodeHandler{codeService: codeService}
}

type generateCodeRequest struct {
	AccessType string      `json:"accessType"`
	Paths      interface{} `json:"paths"`
}

// GenerateCode mints a one-time unlock code. Backstage only.
func (h *CodeHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req generateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	accessType, err := accesscode.ParseAccessType(req.AccessType)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	paths, err := path.FromJSON(req.Paths)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid paths value")
		return
	}
	if paths.IsEmpty() {
		respondWithError(w, http.StatusBadRequest, "paths must name at least one track or \"all\"")
		return
	}

	code, err := h.codeService.Generate(ctx, accessType, paths)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]string{
		"code":       code.Code,
		"accessType": string(code.AccessType),
	})
}

type validateCodeRequest struct {
	Code string `json:"code"`
}

type validateCodeResponse struct {
	IsValid    bool        `json:"isValid"`
	AccessType string      `json:"accessType,omitempty"`
	Paths      interface{} `json:"paths,omitempty"`
	NoNewPaths bool        `json:"noNewPaths,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ValidateCode answers whether a code could be redeemed by the caller,
// without touching it. Invalid and claimed codes come back as isValid=false
// with an inline message rather than an HTTP error, which is what the
// redemption form renders.
func (h *CodeHandler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req validateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.codeService.Validate(ctx, req.Code, uid)
	switch {
	case errors.Is(err, services.ErrCodeNotFound),
		errors.Is(err, services.ErrCodeInvalidFormat):
		respondWithJSON(w, http.StatusOK, validateCodeResponse{IsValid: false, Error: "invalid code"})
		return
	case errors.Is(err, services.ErrCodeAlreadyClaimed):
		respondWithJSON(w, http.StatusOK, validateCodeResponse{IsValid: false, Error: "already claimed"})
		return
	case err != nil:
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, validateCodeResponse{
		IsValid:    true,
		AccessType: string(result.AccessType),
		Paths:      result.Paths.ToFirestore(),
		NoNewPaths: result.NoNewPaths,
	})
}
