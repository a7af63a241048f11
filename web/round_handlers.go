package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chute-service/pkg/common"
)

// handleListRounds 锦标赛的全部回合
func (s *Server) handleListRounds(w http.ResponseWriter, r *http.Request) {
	championshipID, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	rounds, err := s.rounds.ListRounds(championshipID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"championship_id": championshipID,
		"count":           len(rounds),
		"rounds":          rounds,
	})
}

// handleCreateRound 管理员手动追加回合
func (s *Server) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	championshipID, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		RoundNumber int       `json:"round_number"`
		StartTime   time.Time `json:"start_time"`
		EndTime     time.Time `json:"end_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	round, err := s.rounds.CreateRound(championshipID, req.RoundNumber, req.StartTime, req.EndTime)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, round)
}

// handleUpdateRound 调整回合时间窗
func (s *Server) handleUpdateRound(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req struct {
		StartTime time.Time `json:"start_time"`
		EndTime   time.Time `json:"end_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	round, err := s.rounds.UpdateRound(roundID, req.StartTime, req.EndTime)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, round)
}

// handleDeleteRound 删除回合
func (s *Server) handleDeleteRound(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := s.rounds.DeleteRound(roundID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// handleRoundMatches 回合内的比赛列表
func (s *Server) handleRoundMatches(w http.ResponseWriter, r *http.Request) {
	roundID, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	matches, err := s.rounds.ListRoundMatches(roundID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"round_id": roundID,
		"count":    len(matches),
		"matches":  matches,
	})
}
