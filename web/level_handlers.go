package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"chute-service/pkg/common"
)

type levelRequest struct {
	LevelNumber       int    `json:"level_number"`
	Name              string `json:"name"`
	MinGoals          int    `json:"min_goals"`
	MaxGoals          int    `json:"max_goals"`
	RewardDescription string `json:"reward_description"`
}

// handleListLevels 等级列表
func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.levels.List()
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(levels),
		"levels": levels,
	})
}

// handleCreateLevel 新增等级
func (s *Server) handleCreateLevel(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	level, err := s.levels.Create(req.LevelNumber, req.MinGoals, req.MaxGoals, req.Name, req.RewardDescription)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, level)
}

// handleUpdateLevel 修改等级
func (s *Server) handleUpdateLevel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid level id", common.ErrValidation))
		return
	}

	var req levelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	level, err := s.levels.Update(id, req.LevelNumber, req.MinGoals, req.MaxGoals, req.Name, req.RewardDescription)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, level)
}

// handleDeleteLevel 删除等级
func (s *Server) handleDeleteLevel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, fmt.Errorf("%w: invalid level id", common.ErrValidation))
		return
	}

	if err := s.levels.Delete(id); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
