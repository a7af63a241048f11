package database

import (
	"time"

	"github.com/google/uuid"
)

// 订阅方案
const (
	PlanFree    = "free"
	PlanMonthly = "monthly"
	PlanAnnual  = "annual"
)

// 用户状态
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusPending   = "pending"
)

// 锦标赛类型
const (
	ChampionshipLeague = "league"
	ChampionshipCup    = "cup"
)

// 回合/比赛/锦标赛共用的状态机: scheduled -> active -> finished
const (
	StatusScheduled = "scheduled"
	StatusActive    = "active"
	StatusFinished  = "finished"
)

// User 玩家账户与游戏状态
type User struct {
	ID                  uuid.UUID  `db:"id"`
	Name                string     `db:"name"`
	Email               string     `db:"email"`
	Plan                string     `db:"plan"`
	IsAdmin             bool       `db:"is_admin"`
	TeamHeartID         uuid.UUID  `db:"team_heart_id"`
	TeamDefendingID     uuid.UUID  `db:"team_defending_id"`
	TotalGoals          int        `db:"total_goals"`
	GolsCurrentRound    int        `db:"gols_current_round"`
	NextAllowedShotTime time.Time  `db:"next_allowed_shot_time"`
	BoostExpiresAt      *time.Time `db:"boost_expires_at"`
	Status              string     `db:"status"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// Team 球队 (静态参照数据，仅管理员维护)
type Team struct {
	ID             uuid.UUID `db:"id"`
	Name           string    `db:"name"`
	PrimaryColor   string    `db:"primary_color"`
	SecondaryColor string    `db:"secondary_color"`
	ShieldURL      *string   `db:"shield_url"`
	CreatedAt      time.Time `db:"created_at"`
}

// Championship 锦标赛容器 (联赛或杯赛)
type Championship struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Type         string    `db:"type"`
	Status       string    `db:"status"`
	StartDate    time.Time `db:"start_date"`
	CurrentRound int       `db:"current_round"`
	TotalRounds  int       `db:"total_rounds"`
	CreatedAt    time.Time `db:"created_at"`
}

// ChampionshipTeam 锦标赛与球队的关联，position 决定杯赛对阵顺序
type ChampionshipTeam struct {
	ChampionshipID uuid.UUID `db:"championship_id"`
	TeamID         uuid.UUID `db:"team_id"`
	Position       int       `db:"position"`
}

// Round 锦标赛内的一个时间窗口
type Round struct {
	ID             uuid.UUID `db:"id"`
	ChampionshipID uuid.UUID `db:"championship_id"`
	RoundNumber    int       `db:"round_number"`
	StartTime      time.Time `db:"start_time"`
	EndTime        time.Time `db:"end_time"`
	Status         string    `db:"status"`
	CreatedAt      time.Time `db:"created_at"`
}

// Match 回合内两支球队之间的对局；MatchNumber 用于配对杯赛的首回合/次回合
type Match struct {
	ID             uuid.UUID `db:"id"`
	ChampionshipID uuid.UUID `db:"championship_id"`
	RoundID        uuid.UUID `db:"round_id"`
	TeamAID        uuid.UUID `db:"team_a_id"`
	TeamBID        uuid.UUID `db:"team_b_id"`
	ScoreTeamA     int       `db:"score_team_a"`
	ScoreTeamB     int       `db:"score_team_b"`
	Status         string    `db:"status"`
	MatchNumber    *int      `db:"match_number"`
	CreatedAt      time.Time `db:"created_at"`
}

// Goal 进球事件，只追加不修改
type Goal struct {
	ID       uuid.UUID `db:"id"`
	MatchID  uuid.UUID `db:"match_id"`
	UserID   uuid.UUID `db:"user_id"`
	TeamID   uuid.UUID `db:"team_id"`
	ScoredAt time.Time `db:"scored_at"`
}

// Level 进阶等级，[MinGoals, MaxGoals] 闭区间
type Level struct {
	ID                int64  `db:"id"`
	LevelNumber       int    `db:"level_number"`
	Name              string `db:"name"`
	MinGoals          int    `db:"min_goals"`
	MaxGoals          int    `db:"max_goals"`
	RewardDescription string `db:"reward_description"`
}
