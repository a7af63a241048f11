package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"chute-service/config"
	"chute-service/database"
	"chute-service/services"
	"chute-service/web"
)

func main() {
	log.Println("Starting Chute Service...")

	// 加载 .env (不存在时忽略)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// 加载配置
	cfg := config.Load()

	// 连接数据库
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 运行数据库迁移 (含等级种子数据)
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database connected and migrated")

	clock := clockwork.NewRealClock()

	// 创建进球事件 Broker
	broker := services.NewInMemoryBroker()
	defer broker.Close()

	// 创建WebSocket Hub 并桥接进球事件
	wsHub := web.NewHub()
	go wsHub.Run()

	if err := web.StartGoalFeed(broker, wsHub); err != nil {
		log.Fatalf("Failed to start goal feed: %v", err)
	}

	// 可选: 进球事件转发到外部 AMQP
	var amqpPublisher *services.AMQPPublisher
	if cfg.AMQPURL != "" {
		amqpPublisher, err = services.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Fatalf("Failed to connect AMQP publisher: %v", err)
		}
		go amqpPublisher.Run(broker)
		log.Println("AMQP goal publisher started")
	}

	// 创建领域服务
	standingsCache := services.NewQueryCache(cfg.StandingsCacheTTL)
	standingsService := services.NewStandingsService(db, standingsCache, cfg.CupTiebreakFallback)
	levelService := services.NewLevelService(db)
	teamService := services.NewTeamService(db)
	userService := services.NewUserService(db, levelService, clock)
	cooldownPolicy := services.NewCooldownPolicy(cfg)
	shotService := services.NewShotService(db, cooldownPolicy, broker, clock)
	roundService := services.NewRoundService(db, standingsService, cfg.CupTiebreakFallback, clock)
	championshipService := services.NewChampionshipService(db, cfg.RoundDuration, standingsService)

	// 启动回合扫描器
	sweeper := services.NewRoundSweeper(roundService, cfg.SweepInterval, clock)
	sweeper.Start()

	// 启动HTTP服务器
	server := web.NewServer(cfg, wsHub, web.Services{
		Shots:         shotService,
		Users:         userService,
		Teams:         teamService,
		Levels:        levelService,
		Championships: championshipService,
		Rounds:        roundService,
		Standings:     standingsService,
	})

	go func() {
		log.Printf("HTTP server listening on :%s", cfg.Port)
		if err := server.Start(); err != nil {
			log.Printf("HTTP server stopped: %v", err)
		}
	}()

	log.Println("Service is running. Press Ctrl+C to stop.")

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down service...")

	// 清理资源
	sweeper.Stop()
	if amqpPublisher != nil {
		amqpPublisher.Stop()
	}
	server.Stop()

	log.Println("Service stopped")
}
