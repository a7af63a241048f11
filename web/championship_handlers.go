package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"chute-service/pkg/common"
)

// handleCreateChampionship 创建锦标赛并生成赛程
func (s *Server) handleCreateChampionship(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string      `json:"name"`
		Type      string      `json:"type"`
		StartDate time.Time   `json:"start_date"`
		TeamIDs   []uuid.UUID `json:"team_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	championship, err := s.championships.Create(req.Name, req.Type, req.StartDate, req.TeamIDs)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, championship)
}

// handleListChampionships 锦标赛列表，可选 status 过滤
func (s *Server) handleListChampionships(w http.ResponseWriter, r *http.Request) {
	championships, err := s.championships.List(r.URL.Query().Get("status"))
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":         len(championships),
		"championships": championships,
	})
}

// handleGetChampionship 锦标赛详情
func (s *Server) handleGetChampionship(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	detail, err := s.championships.Get(id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// handleUpdateChampionship 修改名称或开始时间
func (s *Server) handleUpdateChampionship(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		Name      string      `json:"name"`
		StartDate *time.Time  `json:"start_date"`
		TeamIDs   []uuid.UUID `json:"team_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	championship, err := s.championships.Update(id, req.Name, req.StartDate, req.TeamIDs)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, championship)
}

// handleDeleteChampionship 删除锦标赛
func (s *Server) handleDeleteChampionship(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := s.championships.Delete(id); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// handleStandings 积分榜 (联赛) 或对阵表 (杯赛)
func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	standings, err := s.standings.GetStandings(id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, standings)
}

// handleAdvanceRound 管理员手动结束当前回合
func (s *Server) handleAdvanceRound(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := s.rounds.AdvanceRound(id); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "advanced"})
}
