package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"chute-service/database"
	"chute-service/logger"
	"chute-service/pkg/common"
)

// CooldownActiveError 冷却未结束时的错误，携带剩余等待时间
type CooldownActiveError struct {
	Remaining time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("shot cooldown active, retry in %s", e.Remaining.Round(time.Second))
}

// Is 让 errors.Is(err, common.ErrNotEligible) 成立
func (e *CooldownActiveError) Is(target error) bool {
	return target == common.ErrNotEligible
}

// ShotStatus 查询射门资格的结果
type ShotStatus struct {
	CanShoot         bool       `json:"can_shoot"`
	RemainingSeconds int        `json:"remaining_seconds"`
	NextShotTime     time.Time  `json:"next_shot_time"`
	Cooldown         string     `json:"cooldown"`
	ActiveMatchID    *uuid.UUID `json:"active_match_id,omitempty"`
}

// ShotResult 射门成功后的结果
type ShotResult struct {
	GoalID       uuid.UUID `json:"goal_id"`
	MatchID      uuid.UUID `json:"match_id"`
	TeamID       uuid.UUID `json:"team_id"`
	ScoreTeamA   int       `json:"score_team_a"`
	ScoreTeamB   int       `json:"score_team_b"`
	TotalGoals   int       `json:"total_goals"`
	NextShotTime time.Time `json:"next_shot_time"`
}

// Scorer 单场比赛的射手榜条目
type Scorer struct {
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name"`
	TeamID   uuid.UUID `json:"team_id"`
	Goals    int       `json:"goals"`
}

// ShotService 射门核心服务：资格校验、原子进球落库、事件发布
type ShotService struct {
	db     *sql.DB
	policy CooldownPolicy
	broker MessageBroker
	clock  clockwork.Clock
}

// NewShotService 创建射门服务
func NewShotService(db *sql.DB, policy CooldownPolicy, broker MessageBroker, clock clockwork.Clock) *ShotService {
	return &ShotService{
		db:     db,
		policy: policy,
		broker: broker,
		clock:  clock,
	}
}

// CanShoot 只读查询用户当前能否射门，以及守护球队的进行中比赛
func (s *ShotService) CanShoot(userID uuid.UUID) (*ShotStatus, error) {
	var user database.User
	err := s.db.QueryRow(`
		SELECT id, plan, team_defending_id, next_allowed_shot_time, boost_expires_at, status
		FROM users WHERE id = $1`, userID).
		Scan(&user.ID, &user.Plan, &user.TeamDefendingID, &user.NextAllowedShotTime, &user.BoostExpiresAt, &user.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", common.ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := s.clock.Now()
	cooldown := s.policy.Resolve(user.Plan, user.BoostExpiresAt, now)

	status := &ShotStatus{
		NextShotTime: user.NextAllowedShotTime,
		Cooldown:     cooldown.String(),
	}

	matchID, err := s.findActiveMatch(user.TeamDefendingID, now)
	if err == nil {
		status.ActiveMatchID = &matchID
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to find active match: %w", err)
	}

	if user.Status != database.UserStatusActive || status.ActiveMatchID == nil {
		return status, nil
	}

	if now.Before(user.NextAllowedShotTime) {
		status.RemainingSeconds = int(user.NextAllowedShotTime.Sub(now).Seconds())
		return status, nil
	}

	status.CanShoot = true
	return status, nil
}

// Shoot 执行一次射门。资格校验、计数更新、比分更新和进球记录
// 在同一事务里完成，next_allowed_shot_time 上的条件更新保证
// 并发重复请求最多只有一次成功。
func (s *ShotService) Shoot(userID uuid.UUID) (*ShotResult, error) {
	now := s.clock.Now()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var user database.User
	err = tx.QueryRow(`
		SELECT id, name, plan, team_defending_id, total_goals, next_allowed_shot_time, boost_expires_at, status
		FROM users WHERE id = $1 FOR UPDATE`, userID).
		Scan(&user.ID, &user.Name, &user.Plan, &user.TeamDefendingID, &user.TotalGoals,
			&user.NextAllowedShotTime, &user.BoostExpiresAt, &user.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: user %s", common.ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if user.Status != database.UserStatusActive {
		return nil, fmt.Errorf("%w: user is %s", common.ErrValidation, user.Status)
	}

	if now.Before(user.NextAllowedShotTime) {
		return nil, &CooldownActiveError{Remaining: user.NextAllowedShotTime.Sub(now)}
	}

	var match database.Match
	err = tx.QueryRow(`
		SELECT m.id, m.team_a_id, m.team_b_id, m.score_team_a, m.score_team_b
		FROM matches m
		JOIN rounds r ON r.id = m.round_id
		WHERE m.status = $1 AND r.status = $1
		  AND (m.team_a_id = $2 OR m.team_b_id = $2)
		  AND r.start_time <= $3 AND r.end_time > $3
		ORDER BY r.round_number
		LIMIT 1
		FOR UPDATE OF m`, database.StatusActive, user.TeamDefendingID, now).
		Scan(&match.ID, &match.TeamAID, &match.TeamBID, &match.ScoreTeamA, &match.ScoreTeamB)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: team %s has no active match", common.ErrNoActiveMatch, user.TeamDefendingID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active match: %w", err)
	}

	cooldown := s.policy.Resolve(user.Plan, user.BoostExpiresAt, now)
	nextShot := now.Add(cooldown)

	// 条件更新是最终防线: 另一个并发事务先提交时这里是 0 行
	res, err := tx.Exec(`
		UPDATE users
		SET total_goals = total_goals + 1,
		    gols_current_round = gols_current_round + 1,
		    next_allowed_shot_time = $2,
		    updated_at = $3
		WHERE id = $1 AND next_allowed_shot_time <= $3`, userID, nextShot, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update user counters: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, &CooldownActiveError{Remaining: cooldown}
	}

	var scoreColumn string
	if user.TeamDefendingID == match.TeamAID {
		scoreColumn = "score_team_a"
	} else {
		scoreColumn = "score_team_b"
	}

	res, err = tx.Exec(fmt.Sprintf(`
		UPDATE matches SET %s = %s + 1
		WHERE id = $1 AND status = $2`, scoreColumn, scoreColumn), match.ID, database.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to update match score: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("%w: match %s", common.ErrMatchNotActive, match.ID)
	}

	goalID := uuid.New()
	if _, err := tx.Exec(`
		INSERT INTO goals (id, match_id, user_id, team_id, scored_at)
		VALUES ($1, $2, $3, $4, $5)`, goalID, match.ID, userID, user.TeamDefendingID, now); err != nil {
		return nil, fmt.Errorf("failed to insert goal: %w", err)
	}

	if user.TeamDefendingID == match.TeamAID {
		match.ScoreTeamA++
	} else {
		match.ScoreTeamB++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit shot: %w", err)
	}

	logger.Printf("⚽ Goal! user=%s match=%s score=%d-%d", user.Name, match.ID, match.ScoreTeamA, match.ScoreTeamB)
	s.publishGoal(goalID, match, user, now)

	return &ShotResult{
		GoalID:       goalID,
		MatchID:      match.ID,
		TeamID:       user.TeamDefendingID,
		ScoreTeamA:   match.ScoreTeamA,
		ScoreTeamB:   match.ScoreTeamB,
		TotalGoals:   user.TotalGoals + 1,
		NextShotTime: nextShot,
	}, nil
}

// publishGoal 提交后发布进球事件，失败只记日志不影响已落库的进球
func (s *ShotService) publishGoal(goalID uuid.UUID, match database.Match, user database.User, scoredAt time.Time) {
	var teamName string
	if err := s.db.QueryRow("SELECT name FROM teams WHERE id = $1", user.TeamDefendingID).Scan(&teamName); err != nil {
		logger.Errorf("Failed to load team name for goal event: %v", err)
	}

	event := GoalEvent{
		GoalID:     goalID,
		MatchID:    match.ID,
		UserID:     user.ID,
		UserName:   user.Name,
		TeamID:     user.TeamDefendingID,
		TeamName:   teamName,
		ScoreTeamA: match.ScoreTeamA,
		ScoreTeamB: match.ScoreTeamB,
		ScoredAt:   scoredAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("Failed to marshal goal event: %v", err)
		return
	}

	if err := s.broker.Produce(BrokerMessage{
		Topic: TopicGoals,
		Key:   match.ID.String(),
		Value: payload,
	}); err != nil {
		logger.Errorf("Failed to produce goal event: %v", err)
	}
}

// findActiveMatch 查找球队当前进行中的比赛
func (s *ShotService) findActiveMatch(teamID uuid.UUID, now time.Time) (uuid.UUID, error) {
	var matchID uuid.UUID
	err := s.db.QueryRow(`
		SELECT m.id
		FROM matches m
		JOIN rounds r ON r.id = m.round_id
		WHERE m.status = $1 AND r.status = $1
		  AND (m.team_a_id = $2 OR m.team_b_id = $2)
		  AND r.start_time <= $3 AND r.end_time > $3
		ORDER BY r.round_number
		LIMIT 1`, database.StatusActive, teamID, now).Scan(&matchID)
	return matchID, err
}

// ListMatchGoals 按时间倒序返回一场比赛的进球
func (s *ShotService) ListMatchGoals(matchID uuid.UUID, limit int) ([]database.Goal, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT id, match_id, user_id, team_id, scored_at
		FROM goals WHERE match_id = $1
		ORDER BY scored_at DESC
		LIMIT $2`, matchID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []database.Goal
	for rows.Next() {
		var goal database.Goal
		if err := rows.Scan(&goal.ID, &goal.MatchID, &goal.UserID, &goal.TeamID, &goal.ScoredAt); err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, goal)
	}
	return goals, rows.Err()
}

// MatchScorers 返回一场比赛的射手榜，按进球数降序
func (s *ShotService) MatchScorers(matchID uuid.UUID) ([]Scorer, error) {
	rows, err := s.db.Query(`
		SELECT g.user_id, u.name, g.team_id, COUNT(*) AS goals
		FROM goals g
		JOIN users u ON u.id = g.user_id
		WHERE g.match_id = $1
		GROUP BY g.user_id, u.name, g.team_id
		ORDER BY goals DESC, u.name`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scorers: %w", err)
	}
	defer rows.Close()

	var scorers []Scorer
	for rows.Next() {
		var scorer Scorer
		if err := rows.Scan(&scorer.UserID, &scorer.UserName, &scorer.TeamID, &scorer.Goals); err != nil {
			return nil, fmt.Errorf("failed to scan scorer: %w", err)
		}
		scorers = append(scorers, scorer)
	}
	return scorers, rows.Err()
}
