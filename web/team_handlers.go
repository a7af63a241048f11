package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"chute-service/pkg/common"
)

type teamRequest struct {
	Name           string  `json:"name"`
	PrimaryColor   string  `json:"primary_color"`
	SecondaryColor string  `json:"secondary_color"`
	ShieldURL      *string `json:"shield_url"`
}

// handleCreateTeam 创建球队
func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	team, err := s.teams.Create(req.Name, req.PrimaryColor, req.SecondaryColor, req.ShieldURL)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, team)
}

// handleListTeams 球队列表
func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.teams.List()
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(teams),
		"teams": teams,
	})
}

// handleGetTeam 球队详情
func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	team, err := s.teams.Get(id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, team)
}

// handleUpdateTeam 修改球队
func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, fmt.Errorf("%w: invalid request body", common.ErrValidation))
		return
	}

	team, err := s.teams.Update(id, req.Name, req.PrimaryColor, req.SecondaryColor, req.ShieldURL)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, team)
}

// handleDeleteTeam 删除球队
func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDVar(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := s.teams.Delete(id); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
