package services

import (
	"time"

	"chute-service/config"
	"chute-service/database"
)

// CooldownPolicy 射门冷却策略，按订阅方案和 Boost 状态决定冷却时长
type CooldownPolicy struct {
	Free   time.Duration
	Member time.Duration
	Boost  time.Duration
}

// NewCooldownPolicy 从配置构建冷却策略
func NewCooldownPolicy(cfg *config.Config) CooldownPolicy {
	return CooldownPolicy{
		Free:   time.Duration(cfg.CooldownFreeMinutes) * time.Minute,
		Member: time.Duration(cfg.CooldownMemberMinutes) * time.Minute,
		Boost:  time.Duration(cfg.CooldownBoostMinutes) * time.Minute,
	}
}

// Resolve 计算给定方案与 Boost 状态下的冷却时长。
// 未过期的 Boost 优先于任何方案生效。
func (p CooldownPolicy) Resolve(plan string, boostExpiresAt *time.Time, now time.Time) time.Duration {
	if boostExpiresAt != nil && now.Before(*boostExpiresAt) {
		return p.Boost
	}

	switch plan {
	case database.PlanMonthly, database.PlanAnnual:
		return p.Member
	default:
		return p.Free
	}
}
