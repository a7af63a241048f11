package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"chute-service/pkg/common"
)

// parseUUIDVar 从路由变量解析UUID
func parseUUIDVar(r *http.Request, name string) (uuid.UUID, error) {
	raw := mux.Vars(r)[name]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s %q", common.ErrValidation, name, raw)
	}
	return id, nil
}

// handleShoot 执行一次射门
func (s *Server) handleShoot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == uuid.Nil {
		respondError(w, fmt.Errorf("%w: user_id is required", common.ErrValidation))
		return
	}

	result, err := s.shots.Shoot(req.UserID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// handleCanShoot 查询用户当前能否射门
func (s *Server) handleCanShoot(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	status, err := s.shots.CanShoot(userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

// handleMatchGoals 获取一场比赛的进球列表
func (s *Server) handleMatchGoals(w http.ResponseWriter, r *http.Request) {
	matchID, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	goals, err := s.shots.ListMatchGoals(matchID, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"match_id": matchID,
		"count":    len(goals),
		"goals":    goals,
	})
}

// handleMatchScorers 获取一场比赛的射手榜
func (s *Server) handleMatchScorers(w http.ResponseWriter, r *http.Request) {
	matchID, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	scorers, err := s.shots.MatchScorers(matchID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"match_id": matchID,
		"scorers":  scorers,
	})
}
