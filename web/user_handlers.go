package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"chute-service/pkg/common"
	"chute-service/services"
)

// handleRegisterUser 注册新用户
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name            string     `json:"name"`
		Email           string     `json:"email"`
		TeamDefendingID uuid.UUID  `json:"team_defending_id"`
		TeamHeartID     *uuid.UUID `json:"team_heart_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}
	if req.TeamDefendingID == uuid.Nil {
		respondError(w, fmt.Errorf("%w: team_defending_id is required", common.ErrValidation))
		return
	}

	user, err := s.users.Register(req.Name, req.Email, req.TeamDefendingID, req.TeamHeartID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// handleGetUser 获取用户资料和等级
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	profile, err := s.users.Get(userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// handleUpdateUser 管理员编辑用户
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var update services.UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		respondError(w, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	profile, err := s.users.Update(userID, update)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// handleRankings 射手排行榜，scope=total|round
func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	scope := query.Get("scope")
	if scope == "" {
		scope = "total"
	}
	if scope != "total" && scope != "round" {
		respondError(w, fmt.Errorf("%w: scope must be total or round", common.ErrValidation))
		return
	}

	limit, _ := strconv.Atoi(query.Get("limit"))

	entries, err := s.users.Rankings(scope, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scope":    scope,
		"rankings": entries,
	})
}

// handlePaymentWebhook 支付网关回调
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    uuid.UUID `json:"user_id"`
		EventType string    `json:"event_type"`
		Plan      string    `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		respondError(w, fmt.Errorf("%w: user_id and event_type are required", common.ErrValidation))
		return
	}

	if err := s.users.ApplyPaymentEvent(req.UserID, req.EventType, req.Plan); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}
