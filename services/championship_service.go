package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"chute-service/database"
	"chute-service/logger"
	"chute-service/pkg/common"
)

// 赛程生成的事务级咨询锁 Key，防止并发创建重复写入回合
const scheduleGenerationLockKey = 74101

// ChampionshipService 锦标赛管理服务：创建时生成完整 (联赛) 或
// 首阶段 (杯赛) 赛程，更新、删除带状态守卫
type ChampionshipService struct {
	db            *sql.DB
	roundDuration time.Duration
	standings     *StandingsService
}

// NewChampionshipService 创建锦标赛服务
func NewChampionshipService(db *sql.DB, roundDuration time.Duration, standings *StandingsService) *ChampionshipService {
	return &ChampionshipService{
		db:            db,
		roundDuration: roundDuration,
		standings:     standings,
	}
}

// ChampionshipDetail 锦标赛详情，附带参赛球队
type ChampionshipDetail struct {
	database.Championship
	Teams []database.Team `json:"teams"`
}

// Create 创建锦标赛并生成赛程。
// 请求的开始时间早于相关球队已有赛程的结束时间时，
// 自动顺延到已有赛程之后 (一支球队同一时刻只打一场比赛)。
func (s *ChampionshipService) Create(name, champType string, startDate time.Time, teamIDs []uuid.UUID) (*database.Championship, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: championship name is required", common.ErrValidation)
	}
	if err := ValidateTeamCount(champType, len(teamIDs)); err != nil {
		return nil, err
	}
	if hasDuplicates(teamIDs) {
		return nil, fmt.Errorf("%w: duplicate team in championship", common.ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 串行化赛程生成；UNIQUE(championship_id, round_number) 是第二道防线
	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock($1)`, scheduleGenerationLockKey); err != nil {
		return nil, fmt.Errorf("failed to acquire schedule lock: %w", err)
	}

	count, err := countExistingTeams(tx, teamIDs)
	if err != nil {
		return nil, err
	}
	if count != len(teamIDs) {
		return nil, fmt.Errorf("%w: one or more teams do not exist", common.ErrNotFound)
	}

	startDate, err = s.nextAvailableStart(tx, startDate, teamIDs)
	if err != nil {
		return nil, err
	}

	totalRounds := TotalRoundsFor(champType, len(teamIDs))

	var rounds []GeneratedRound
	if champType == database.ChampionshipLeague {
		rounds, err = GenerateLeagueSchedule(teamIDs, startDate, s.roundDuration)
	} else {
		rounds, err = GenerateCupFirstPhase(teamIDs, startDate, s.roundDuration)
	}
	if err != nil {
		return nil, err
	}

	championship := &database.Championship{
		ID:           uuid.New(),
		Name:         name,
		Type:         champType,
		Status:       database.StatusScheduled,
		StartDate:    startDate,
		CurrentRound: 1,
		TotalRounds:  totalRounds,
	}

	err = tx.QueryRow(`
		INSERT INTO championships (id, name, type, status, start_date, current_round, total_rounds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		championship.ID, championship.Name, championship.Type, championship.Status,
		championship.StartDate, championship.CurrentRound, championship.TotalRounds).
		Scan(&championship.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert championship: %w", err)
	}

	for position, teamID := range teamIDs {
		if _, err := tx.Exec(`
			INSERT INTO championship_teams (championship_id, team_id, position)
			VALUES ($1, $2, $3)`, championship.ID, teamID, position+1); err != nil {
			return nil, fmt.Errorf("failed to register team %s: %w", teamID, err)
		}
	}

	if err := insertGeneratedRounds(tx, championship.ID, rounds); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit championship: %w", err)
	}

	logger.Printf("🏟️ Championship %q created: type=%s teams=%d rounds=%d start=%s",
		name, champType, len(teamIDs), totalRounds, startDate.Format(time.RFC3339))
	return championship, nil
}

// nextAvailableStart 返回不与相关球队已有赛程冲突的最早开始时间
func (s *ChampionshipService) nextAvailableStart(tx *sql.Tx, requested time.Time, teamIDs []uuid.UUID) (time.Time, error) {
	ids := make([]string, len(teamIDs))
	for i, id := range teamIDs {
		ids[i] = id.String()
	}

	var latestEnd sql.NullTime
	err := tx.QueryRow(`
		SELECT MAX(r.end_time)
		FROM rounds r
		JOIN matches m ON m.round_id = r.id
		WHERE r.status != $1
		  AND (m.team_a_id = ANY($2::uuid[]) OR m.team_b_id = ANY($2::uuid[]))`,
		database.StatusFinished, pq.Array(ids)).Scan(&latestEnd)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to check schedule conflicts: %w", err)
	}

	if latestEnd.Valid && requested.Before(latestEnd.Time) {
		logger.Printf("Requested start %s conflicts with existing schedule, moved to %s",
			requested.Format(time.RFC3339), latestEnd.Time.Format(time.RFC3339))
		return latestEnd.Time, nil
	}
	return requested, nil
}

// Get 返回锦标赛详情及参赛球队
func (s *ChampionshipService) Get(id uuid.UUID) (*ChampionshipDetail, error) {
	var detail ChampionshipDetail
	err := s.db.QueryRow(`
		SELECT id, name, type, status, start_date, current_round, total_rounds, created_at
		FROM championships WHERE id = $1`, id).
		Scan(&detail.ID, &detail.Name, &detail.Type, &detail.Status, &detail.StartDate,
			&detail.CurrentRound, &detail.TotalRounds, &detail.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: championship %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load championship: %w", err)
	}

	teams, err := s.standings.loadTeams(id)
	if err != nil {
		return nil, err
	}
	detail.Teams = teams
	return &detail, nil
}

// List 返回全部锦标赛，可按状态过滤，按开始时间倒序
func (s *ChampionshipService) List(status string) ([]database.Championship, error) {
	query := `
		SELECT id, name, type, status, start_date, current_round, total_rounds, created_at
		FROM championships`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY start_date DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list championships: %w", err)
	}
	defer rows.Close()

	var championships []database.Championship
	for rows.Next() {
		var c database.Championship
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.Status, &c.StartDate,
			&c.CurrentRound, &c.TotalRounds, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan championship: %w", err)
		}
		championships = append(championships, c)
	}
	return championships, rows.Err()
}

// Update 修改名称、开始时间或参赛球队。开始时间和球队只能在开赛前修改，
// 任一变更后整个赛程重新生成。teamIDs 为 nil 表示不改动参赛球队。
func (s *ChampionshipService) Update(id uuid.UUID, name string, startDate *time.Time, teamIDs []uuid.UUID) (*database.Championship, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var championship database.Championship
	err = tx.QueryRow(`
		SELECT id, name, type, status, start_date, current_round, total_rounds, created_at
		FROM championships WHERE id = $1 FOR UPDATE`, id).
		Scan(&championship.ID, &championship.Name, &championship.Type, &championship.Status,
			&championship.StartDate, &championship.CurrentRound, &championship.TotalRounds, &championship.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: championship %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load championship: %w", err)
	}

	if name != "" {
		championship.Name = name
	}

	regenerate := false

	if teamIDs != nil {
		if championship.Status != database.StatusScheduled {
			return nil, fmt.Errorf("%w: teams can only change before the championship starts", common.ErrConflict)
		}
		if err := ValidateTeamCount(championship.Type, len(teamIDs)); err != nil {
			return nil, err
		}
		if hasDuplicates(teamIDs) {
			return nil, fmt.Errorf("%w: duplicate team in championship", common.ErrValidation)
		}

		count, err := countExistingTeams(tx, teamIDs)
		if err != nil {
			return nil, err
		}
		if count != len(teamIDs) {
			return nil, fmt.Errorf("%w: one or more teams do not exist", common.ErrNotFound)
		}

		if _, err := tx.Exec(`DELETE FROM championship_teams WHERE championship_id = $1`, id); err != nil {
			return nil, fmt.Errorf("failed to clear championship teams: %w", err)
		}
		for position, teamID := range teamIDs {
			if _, err := tx.Exec(`
				INSERT INTO championship_teams (championship_id, team_id, position)
				VALUES ($1, $2, $3)`, id, teamID, position+1); err != nil {
				return nil, fmt.Errorf("failed to register team %s: %w", teamID, err)
			}
		}

		championship.TotalRounds = TotalRoundsFor(championship.Type, len(teamIDs))
		regenerate = true
	}

	if startDate != nil && !startDate.Equal(championship.StartDate) {
		if championship.Status != database.StatusScheduled {
			return nil, fmt.Errorf("%w: start date can only change before the championship starts", common.ErrConflict)
		}
		championship.StartDate = *startDate
		regenerate = true
	}

	if regenerate {
		if err := s.regenerateSchedule(tx, &championship); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(`UPDATE championships SET name = $2, start_date = $3, total_rounds = $4 WHERE id = $1`,
		id, championship.Name, championship.StartDate, championship.TotalRounds); err != nil {
		return nil, fmt.Errorf("failed to update championship: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}

	s.standings.Invalidate(id)
	return &championship, nil
}

// regenerateSchedule 丢弃未开始的赛程并按新开始时间重新生成
func (s *ChampionshipService) regenerateSchedule(tx *sql.Tx, championship *database.Championship) error {
	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock($1)`, scheduleGenerationLockKey); err != nil {
		return fmt.Errorf("failed to acquire schedule lock: %w", err)
	}

	if _, err := tx.Exec(`
		DELETE FROM matches WHERE championship_id = $1`, championship.ID); err != nil {
		return fmt.Errorf("failed to clear matches: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM rounds WHERE championship_id = $1`, championship.ID); err != nil {
		return fmt.Errorf("failed to clear rounds: %w", err)
	}

	rows, err := tx.Query(`
		SELECT team_id FROM championship_teams
		WHERE championship_id = $1 ORDER BY position`, championship.ID)
	if err != nil {
		return fmt.Errorf("failed to load championship teams: %w", err)
	}
	defer rows.Close()

	var teamIDs []uuid.UUID
	for rows.Next() {
		var teamID uuid.UUID
		if err := rows.Scan(&teamID); err != nil {
			return fmt.Errorf("failed to scan team id: %w", err)
		}
		teamIDs = append(teamIDs, teamID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	var rounds []GeneratedRound
	if championship.Type == database.ChampionshipLeague {
		rounds, err = GenerateLeagueSchedule(teamIDs, championship.StartDate, s.roundDuration)
	} else {
		rounds, err = GenerateCupFirstPhase(teamIDs, championship.StartDate, s.roundDuration)
	}
	if err != nil {
		return err
	}

	logger.Printf("Regenerated schedule for championship %s: %d rounds", championship.ID, len(rounds))
	return insertGeneratedRounds(tx, championship.ID, rounds)
}

// Delete 删除锦标赛及其全部赛程，进行中的锦标赛不可删除
func (s *ChampionshipService) Delete(id uuid.UUID) error {
	var status string
	err := s.db.QueryRow(`SELECT status FROM championships WHERE id = $1`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: championship %s", common.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load championship: %w", err)
	}

	if status == database.StatusActive {
		return fmt.Errorf("%w: active championship cannot be deleted", common.ErrConflict)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM goals WHERE match_id IN (SELECT id FROM matches WHERE championship_id = $1)`, id); err != nil {
		return fmt.Errorf("failed to delete goals: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM matches WHERE championship_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete matches: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM rounds WHERE championship_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete rounds: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM championship_teams WHERE championship_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete championship teams: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM championships WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete championship: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	s.standings.Invalidate(id)
	logger.Printf("Championship %s deleted", id)
	return nil
}

func countExistingTeams(tx *sql.Tx, teamIDs []uuid.UUID) (int, error) {
	ids := make([]string, len(teamIDs))
	for i, id := range teamIDs {
		ids[i] = id.String()
	}

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM teams WHERE id = ANY($1::uuid[])`, pq.Array(ids)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to verify teams: %w", err)
	}
	return count, nil
}

func hasDuplicates(ids []uuid.UUID) bool {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
