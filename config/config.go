package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	// 服务器配置
	Port        string
	Environment string

	// 数据库配置
	DatabaseURL string

	// 事件广播配置 (AMQP_URL 为空时只使用内存 Broker)
	AMQPURL      string
	AMQPExchange string

	// 射门冷却配置 (分钟)
	CooldownFreeMinutes   int
	CooldownMemberMinutes int
	CooldownBoostMinutes  int

	// 回合调度配置
	RoundDuration time.Duration
	SweepInterval time.Duration

	// 积分榜缓存配置
	StandingsCacheTTL time.Duration

	// 杯赛两回合全平时的决胜策略: first_leg_home 或 second_leg_home
	CupTiebreakFallback string
}

func Load() *Config {
	return &Config{
		// 服务器配置
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// 数据库配置
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/chute?sslmode=disable"),

		// 事件广播配置
		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "chute.goals"),

		// 射门冷却配置
		CooldownFreeMinutes:   getEnvInt("COOLDOWN_FREE_MINUTES", 20),
		CooldownMemberMinutes: getEnvInt("COOLDOWN_MEMBER_MINUTES", 10),
		CooldownBoostMinutes:  getEnvInt("COOLDOWN_BOOST_MINUTES", 5),

		// 回合调度配置
		RoundDuration: time.Duration(getEnvInt("ROUND_DURATION_HOURS", 24)) * time.Hour,
		SweepInterval: time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 60)) * time.Second,

		// 积分榜缓存配置
		StandingsCacheTTL: time.Duration(getEnvInt("STANDINGS_CACHE_TTL_SECONDS", 30)) * time.Second,

		// 杯赛决胜策略
		CupTiebreakFallback: getEnv("CUP_TIEBREAK_FALLBACK", "first_leg_home"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result int
	fmt.Sscanf(value, "%d", &result)
	if result == 0 {
		return defaultValue
	}
	return result
}
