package main

import (
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"chute-service/config"
	"chute-service/database"
	"chute-service/services"
)

// 开发环境演示数据: 10 支球队、一个联赛和两个测试用户
func main() {
	if os.Getenv("DATABASE_URL") == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	teamService := services.NewTeamService(db)

	names := []string{
		"Leões da Colina", "Furacão Azul", "Tubarões do Cais", "Águias do Norte",
		"Dragões do Vale", "Panteras Negras", "Estrela do Sul", "Gaviões da Serra",
		"Touros do Oeste", "Falcões Dourados",
	}

	var teamIDs []uuid.UUID
	for i, name := range names {
		team, err := teamService.Create(name, "#1E40AF", "#FFFFFF", nil)
		if err != nil {
			log.Fatalf("Failed to create team %q: %v", name, err)
		}
		teamIDs = append(teamIDs, team.ID)
		log.Printf("Team %d created: %s (%s)", i+1, team.Name, team.ID)
	}

	cache := services.NewQueryCache(cfg.StandingsCacheTTL)
	standings := services.NewStandingsService(db, cache, cfg.CupTiebreakFallback)
	championships := services.NewChampionshipService(db, cfg.RoundDuration, standings)

	championship, err := championships.Create("Campeonato de Demonstração",
		database.ChampionshipLeague, time.Now().Add(time.Minute), teamIDs)
	if err != nil {
		log.Fatalf("Failed to create championship: %v", err)
	}
	log.Printf("Championship created: %s with %d rounds", championship.ID, championship.TotalRounds)

	levels := services.NewLevelService(db)
	users := services.NewUserService(db, levels, clockwork.NewRealClock())

	for i, email := range []string{"torcedor@example.com", "craque@example.com"} {
		user, err := users.Register("Demo User "+email, email, teamIDs[i], nil)
		if err != nil {
			log.Fatalf("Failed to register user %s: %v", email, err)
		}
		log.Printf("User registered: %s defending %s", user.ID, user.TeamDefendingID)
	}

	log.Println("Demo data seeded successfully")
}
