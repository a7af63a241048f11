package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"

	"chute-service/database"
	"chute-service/logger"
	"chute-service/pkg/common"
)

// 支付 Webhook 事件类型
const (
	PaymentEventSubscription = "subscription"
	PaymentEventBoost24h     = "boost_24h"
)

// UserProfile 用户资料及派生的等级信息
type UserProfile struct {
	database.User
	Level *database.Level `json:"level,omitempty"`
}

// RankingEntry 射手排行榜条目
type RankingEntry struct {
	Position int       `json:"position"`
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name"`
	TeamID   uuid.UUID `json:"team_id"`
	Goals    int       `json:"goals"`
}

// UserService 用户账户服务：注册、资料查询、管理员编辑、排行榜、支付事件
type UserService struct {
	db     *sql.DB
	levels *LevelService
	clock  clockwork.Clock
}

// NewUserService 创建用户服务
func NewUserService(db *sql.DB, levels *LevelService, clock clockwork.Clock) *UserService {
	return &UserService{db: db, levels: levels, clock: clock}
}

// Register 注册新用户。守护球队必填，主队可选 (缺省等于守护球队)，
// 免费方案，冷却从注册时刻起即可射门。
func (s *UserService) Register(name, email string, teamDefendingID uuid.UUID, teamHeartID *uuid.UUID) (*database.User, error) {
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", common.ErrValidation)
	}

	heartID := teamDefendingID
	if teamHeartID != nil {
		heartID = *teamHeartID
	}

	for _, teamID := range []uuid.UUID{teamDefendingID, heartID} {
		var exists bool
		if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM teams WHERE id = $1)`, teamID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to verify team: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: team %s", common.ErrNotFound, teamID)
		}
	}

	now := s.clock.Now()
	user := &database.User{
		ID:                  uuid.New(),
		Name:                name,
		Email:               email,
		Plan:                database.PlanFree,
		TeamHeartID:         heartID,
		TeamDefendingID:     teamDefendingID,
		NextAllowedShotTime: now,
		Status:              database.UserStatusActive,
	}

	err := s.db.QueryRow(`
		INSERT INTO users (id, name, email, plan, team_heart_id, team_defending_id, next_allowed_shot_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		user.ID, user.Name, user.Email, user.Plan, user.TeamHeartID,
		user.TeamDefendingID, user.NextAllowedShotTime, user.Status).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: email %s already registered", common.ErrConflict, email)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	logger.Printf("👤 User registered: %s (%s)", name, email)
	return user, nil
}

// Get 返回用户资料和当前等级
func (s *UserService) Get(id uuid.UUID) (*UserProfile, error) {
	var user database.User
	err := s.db.QueryRow(`
		SELECT id, name, email, plan, is_admin, team_heart_id, team_defending_id,
		       total_goals, gols_current_round, next_allowed_shot_time, boost_expires_at,
		       status, created_at, updated_at
		FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.Plan, &user.IsAdmin,
			&user.TeamHeartID, &user.TeamDefendingID, &user.TotalGoals, &user.GolsCurrentRound,
			&user.NextAllowedShotTime, &user.BoostExpiresAt, &user.Status, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	profile := &UserProfile{User: user}
	level, err := s.levels.LevelForGoals(user.TotalGoals)
	if err != nil {
		logger.Errorf("Failed to resolve level for user %s: %v", id, err)
	} else {
		profile.Level = level
	}
	return profile, nil
}

// UserUpdate 管理员可编辑的字段，nil 表示不修改
type UserUpdate struct {
	Name            *string    `json:"name"`
	Plan            *string    `json:"plan"`
	Status          *string    `json:"status"`
	IsAdmin         *bool      `json:"is_admin"`
	TeamDefendingID *uuid.UUID `json:"team_defending_id"`
}

// Update 管理员编辑用户
func (s *UserService) Update(id uuid.UUID, update UserUpdate) (*UserProfile, error) {
	if update.Plan != nil {
		switch *update.Plan {
		case database.PlanFree, database.PlanMonthly, database.PlanAnnual:
		default:
			return nil, fmt.Errorf("%w: unknown plan %q", common.ErrValidation, *update.Plan)
		}
	}
	if update.Status != nil {
		switch *update.Status {
		case database.UserStatusActive, database.UserStatusSuspended, database.UserStatusPending:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", common.ErrValidation, *update.Status)
		}
	}
	if update.TeamDefendingID != nil {
		var exists bool
		if err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM teams WHERE id = $1)`, *update.TeamDefendingID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to verify team: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: team %s", common.ErrNotFound, *update.TeamDefendingID)
		}
	}

	res, err := s.db.Exec(`
		UPDATE users SET
			name = COALESCE($2, name),
			plan = COALESCE($3, plan),
			status = COALESCE($4, status),
			is_admin = COALESCE($5, is_admin),
			team_defending_id = COALESCE($6, team_defending_id),
			updated_at = $7
		WHERE id = $1`,
		id, update.Name, update.Plan, update.Status, update.IsAdmin, update.TeamDefendingID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("%w: user %s", common.ErrNotFound, id)
	}

	return s.Get(id)
}

// Rankings 射手排行榜。scope 为 "round" 时按本回合进球，否则按累计进球。
func (s *UserService) Rankings(scope string, limit int) ([]RankingEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	column := "total_goals"
	if scope == "round" {
		column = "gols_current_round"
	}

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT id, name, team_defending_id, %s
		FROM users
		WHERE status = $1
		ORDER BY %s DESC, name
		LIMIT $2`, column, column), database.UserStatusActive, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load rankings: %w", err)
	}
	defer rows.Close()

	var entries []RankingEntry
	for rows.Next() {
		var entry RankingEntry
		if err := rows.Scan(&entry.UserID, &entry.UserName, &entry.TeamID, &entry.Goals); err != nil {
			return nil, fmt.Errorf("failed to scan ranking entry: %w", err)
		}
		entry.Position = len(entries) + 1
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ApplyPaymentEvent 处理支付网关 Webhook：订阅方案变更或 24 小时 Boost
func (s *UserService) ApplyPaymentEvent(userID uuid.UUID, eventType, plan string) error {
	now := s.clock.Now()

	switch eventType {
	case PaymentEventSubscription:
		switch plan {
		case database.PlanFree, database.PlanMonthly, database.PlanAnnual:
		default:
			return fmt.Errorf("%w: unknown plan %q", common.ErrValidation, plan)
		}
		res, err := s.db.Exec(`UPDATE users SET plan = $2, updated_at = $3 WHERE id = $1`, userID, plan, now)
		if err != nil {
			return fmt.Errorf("failed to apply subscription: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("%w: user %s", common.ErrNotFound, userID)
		}
		logger.Printf("💳 Subscription updated: user=%s plan=%s", userID, plan)
		return nil

	case PaymentEventBoost24h:
		expires := now.Add(24 * time.Hour)
		res, err := s.db.Exec(`UPDATE users SET boost_expires_at = $2, updated_at = $3 WHERE id = $1`, userID, expires, now)
		if err != nil {
			return fmt.Errorf("failed to apply boost: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return fmt.Errorf("%w: user %s", common.ErrNotFound, userID)
		}
		logger.Printf("🚀 Boost applied: user=%s expires=%s", userID, expires.Format(time.RFC3339))
		return nil

	default:
		return fmt.Errorf("%w: unknown payment event %q", common.ErrValidation, eventType)
	}
}
