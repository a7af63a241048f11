package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"chute-service/config"
	"chute-service/pkg/common"
	"chute-service/services"
)

type Server struct {
	config        *config.Config
	wsHub         *Hub
	shots         *services.ShotService
	users         *services.UserService
	teams         *services.TeamService
	levels        *services.LevelService
	championships *services.ChampionshipService
	rounds        *services.RoundService
	standings     *services.StandingsService
	httpServer    *http.Server
	upgrader      websocket.Upgrader
}

// Services 注入给 HTTP 层的全部领域服务
type Services struct {
	Shots         *services.ShotService
	Users         *services.UserService
	Teams         *services.TeamService
	Levels        *services.LevelService
	Championships *services.ChampionshipService
	Rounds        *services.RoundService
	Standings     *services.StandingsService
}

func NewServer(cfg *config.Config, hub *Hub, svcs Services) *Server {
	return &Server{
		config:        cfg,
		wsHub:         hub,
		shots:         svcs.Shots,
		users:         svcs.Users,
		teams:         svcs.Teams,
		levels:        svcs.Levels,
		championships: svcs.Championships,
		rounds:        svcs.Rounds,
		standings:     svcs.Standings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有来源(生产环境需要限制)
			},
		},
	}
}

func (s *Server) Start() error {
	router := mux.NewRouter()

	// API路由
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// 射门与进球
	api.HandleFunc("/shots", s.handleShoot).Methods("POST")
	api.HandleFunc("/matches/{id}/goals", s.handleMatchGoals).Methods("GET")
	api.HandleFunc("/matches/{id}/scorers", s.handleMatchScorers).Methods("GET")

	// 用户
	api.HandleFunc("/users", s.handleRegisterUser).Methods("POST")
	api.HandleFunc("/users/{id}", s.handleGetUser).Methods("GET")
	api.HandleFunc("/users/{id}", s.handleUpdateUser).Methods("PUT")
	api.HandleFunc("/users/{id}/can-shoot", s.handleCanShoot).Methods("GET")
	api.HandleFunc("/rankings", s.handleRankings).Methods("GET")
	api.HandleFunc("/webhooks/payment", s.handlePaymentWebhook).Methods("POST")

	// 锦标赛与回合
	api.HandleFunc("/championships", s.handleCreateChampionship).Methods("POST")
	api.HandleFunc("/championships", s.handleListChampionships).Methods("GET")
	api.HandleFunc("/championships/{id}", s.handleGetChampionship).Methods("GET")
	api.HandleFunc("/championships/{id}", s.handleUpdateChampionship).Methods("PUT")
	api.HandleFunc("/championships/{id}", s.handleDeleteChampionship).Methods("DELETE")
	api.HandleFunc("/championships/{id}/standings", s.handleStandings).Methods("GET")
	api.HandleFunc("/championships/{id}/rounds", s.handleListRounds).Methods("GET")
	api.HandleFunc("/championships/{id}/rounds", s.handleCreateRound).Methods("POST")
	api.HandleFunc("/championships/{id}/advance-round", s.handleAdvanceRound).Methods("POST")
	api.HandleFunc("/rounds/{id}", s.handleUpdateRound).Methods("PUT")
	api.HandleFunc("/rounds/{id}", s.handleDeleteRound).Methods("DELETE")
	api.HandleFunc("/rounds/{id}/matches", s.handleRoundMatches).Methods("GET")

	// 球队
	api.HandleFunc("/teams", s.handleCreateTeam).Methods("POST")
	api.HandleFunc("/teams", s.handleListTeams).Methods("GET")
	api.HandleFunc("/teams/{id}", s.handleGetTeam).Methods("GET")
	api.HandleFunc("/teams/{id}", s.handleUpdateTeam).Methods("PUT")
	api.HandleFunc("/teams/{id}", s.handleDeleteTeam).Methods("DELETE")

	// 等级
	api.HandleFunc("/levels", s.handleListLevels).Methods("GET")
	api.HandleFunc("/levels", s.handleCreateLevel).Methods("POST")
	api.HandleFunc("/levels/{id}", s.handleUpdateLevel).Methods("PUT")
	api.HandleFunc("/levels/{id}", s.handleDeleteLevel).Methods("DELETE")

	// WebSocket路由
	router.HandleFunc("/ws", s.handleWebSocket)

	// CORS配置
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	handler := c.Handler(router)

	s.httpServer = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleWebSocket WebSocket连接入口
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	s.wsHub.register <- client

	go client.writePump()
	go client.readPump()
}

// respondJSON 写入JSON响应
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError 把领域错误映射为HTTP状态码
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrNotEligible):
		status = http.StatusTooManyRequests
	case errors.Is(err, common.ErrNoActiveMatch),
		errors.Is(err, common.ErrMatchNotActive),
		errors.Is(err, common.ErrConflict):
		status = http.StatusConflict
	}

	body := map[string]interface{}{"error": err.Error()}

	// 冷却错误附带剩余秒数，前端据此显示倒计时
	var cooldownErr *services.CooldownActiveError
	if errors.As(err, &cooldownErr) {
		body["retry_after_seconds"] = int(cooldownErr.Remaining.Seconds()) + 1
	}

	respondJSON(w, status, body)
}
