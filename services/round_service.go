package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"chute-service/database"
	"chute-service/logger"
	"chute-service/pkg/common"
)

// RoundService 回合生命周期服务：按时间窗推进 scheduled -> active -> finished，
// 回合结束时处理计数重置、杯赛阶段晋级和锦标赛收尾
type RoundService struct {
	db        *sql.DB
	standings *StandingsService
	fallback  string
	clock     clockwork.Clock
}

// NewRoundService 创建回合服务
func NewRoundService(db *sql.DB, standings *StandingsService, cupTiebreakFallback string, clock clockwork.Clock) *RoundService {
	return &RoundService{
		db:        db,
		standings: standings,
		fallback:  cupTiebreakFallback,
		clock:     clock,
	}
}

// ActivateDueRounds 激活所有到达开始时间的回合。
// 状态条件写在 UPDATE 里，多个实例并发扫描也只生效一次。
func (s *RoundService) ActivateDueRounds() error {
	now := s.clock.Now()

	rows, err := s.db.Query(`
		SELECT id, championship_id, round_number FROM rounds
		WHERE status = $1 AND start_time <= $2 AND end_time > $2
		ORDER BY start_time`, database.StatusScheduled, now)
	if err != nil {
		return fmt.Errorf("failed to query due rounds: %w", err)
	}
	defer rows.Close()

	type dueRound struct {
		id             uuid.UUID
		championshipID uuid.UUID
		number         int
	}
	var due []dueRound
	for rows.Next() {
		var r dueRound
		if err := rows.Scan(&r.id, &r.championshipID, &r.number); err != nil {
			return fmt.Errorf("failed to scan due round: %w", err)
		}
		due = append(due, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range due {
		if err := s.activateRound(r.id, r.championshipID, r.number); err != nil {
			logger.Errorf("Failed to activate round %s: %v", r.id, err)
		}
	}
	return nil
}

// activateRound 激活单个回合及其比赛
func (s *RoundService) activateRound(roundID, championshipID uuid.UUID, roundNumber int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE rounds SET status = $1 WHERE id = $2 AND status = $3`,
		database.StatusActive, roundID, database.StatusScheduled)
	if err != nil {
		return fmt.Errorf("failed to activate round: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// 别的实例已经激活过了
		return nil
	}

	if _, err := tx.Exec(`UPDATE matches SET status = $1 WHERE round_id = $2 AND status = $3`,
		database.StatusActive, roundID, database.StatusScheduled); err != nil {
		return fmt.Errorf("failed to activate matches: %w", err)
	}

	if _, err := tx.Exec(`
		UPDATE championships SET status = $1, current_round = $2
		WHERE id = $3 AND status != $4`,
		database.StatusActive, roundNumber, championshipID, database.StatusFinished); err != nil {
		return fmt.Errorf("failed to update championship: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}

	logger.Printf("🟢 Round %d of championship %s activated", roundNumber, championshipID)
	s.standings.Invalidate(championshipID)
	return nil
}

// FinishDueRounds 结束所有超过结束时间的回合
func (s *RoundService) FinishDueRounds() error {
	now := s.clock.Now()

	rows, err := s.db.Query(`
		SELECT id FROM rounds
		WHERE status = $1 AND end_time <= $2
		ORDER BY end_time`, database.StatusActive, now)
	if err != nil {
		return fmt.Errorf("failed to query expiring rounds: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan round id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if err := s.FinishRound(id); err != nil {
			logger.Errorf("Failed to finish round %s: %v", id, err)
		}
	}
	return nil
}

// FinishRound 结束一个回合：关闭比赛、重置参与者的本回合进球计数、
// 推进锦标赛指针，杯赛阶段结束时生成下一阶段或收尾
func (s *RoundService) FinishRound(roundID uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var round database.Round
	err = tx.QueryRow(`
		SELECT id, championship_id, round_number, start_time, end_time, status
		FROM rounds WHERE id = $1 FOR UPDATE`, roundID).
		Scan(&round.ID, &round.ChampionshipID, &round.RoundNumber, &round.StartTime, &round.EndTime, &round.Status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: round %s", common.ErrNotFound, roundID)
	}
	if err != nil {
		return fmt.Errorf("failed to load round: %w", err)
	}

	res, err := tx.Exec(`UPDATE rounds SET status = $1 WHERE id = $2 AND status = $3`,
		database.StatusFinished, roundID, database.StatusActive)
	if err != nil {
		return fmt.Errorf("failed to finish round: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		// 已被并发处理，幂等返回
		return nil
	}

	if _, err := tx.Exec(`UPDATE matches SET status = $1 WHERE round_id = $2 AND status != $1`,
		database.StatusFinished, roundID); err != nil {
		return fmt.Errorf("failed to finish matches: %w", err)
	}

	// 本回合参赛球队的守护者回合计数清零
	if _, err := tx.Exec(`
		UPDATE users SET gols_current_round = 0, updated_at = $2
		WHERE team_defending_id IN (
			SELECT team_a_id FROM matches WHERE round_id = $1
			UNION
			SELECT team_b_id FROM matches WHERE round_id = $1
		)`, roundID, s.clock.Now()); err != nil {
		return fmt.Errorf("failed to reset round counters: %w", err)
	}

	var championship database.Championship
	err = tx.QueryRow(`
		SELECT id, type, status, total_rounds FROM championships WHERE id = $1 FOR UPDATE`,
		round.ChampionshipID).
		Scan(&championship.ID, &championship.Type, &championship.Status, &championship.TotalRounds)
	if err != nil {
		return fmt.Errorf("failed to load championship: %w", err)
	}

	if championship.Type == database.ChampionshipCup && round.RoundNumber%2 == 0 {
		if err := s.advanceCupPhase(tx, championship, round); err != nil {
			return err
		}
	}

	if round.RoundNumber >= championship.TotalRounds {
		if _, err := tx.Exec(`UPDATE championships SET status = $1 WHERE id = $2`,
			database.StatusFinished, championship.ID); err != nil {
			return fmt.Errorf("failed to finish championship: %w", err)
		}
		logger.Printf("🏆 Championship %s finished", championship.ID)
	} else {
		if _, err := tx.Exec(`UPDATE championships SET current_round = $1 WHERE id = $2`,
			round.RoundNumber+1, championship.ID); err != nil {
			return fmt.Errorf("failed to advance current round: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit round finish: %w", err)
	}

	logger.Printf("🔴 Round %d of championship %s finished", round.RoundNumber, round.ChampionshipID)
	s.standings.Invalidate(round.ChampionshipID)
	return nil
}

// advanceCupPhase 刚结束的回合是某阶段的次回合时，
// 判定各对阵胜者并生成下一阶段的两个回合
func (s *RoundService) advanceCupPhase(tx *sql.Tx, championship database.Championship, finished database.Round) error {
	if finished.RoundNumber >= championship.TotalRounds {
		// 决赛阶段，无需生成
		return nil
	}

	matches, err := loadPhaseMatches(tx, championship.ID, finished.RoundNumber-1, finished.RoundNumber)
	if err != nil {
		return err
	}

	type legs struct {
		first  *database.Match
		second *database.Match
	}
	ties := make(map[int]*legs)
	maxMatchNumber := 0
	var order []int
	for i := range matches {
		match := &matches[i]
		if match.MatchNumber == nil {
			continue
		}
		if *match.MatchNumber > maxMatchNumber {
			maxMatchNumber = *match.MatchNumber
		}
		t, ok := ties[*match.MatchNumber]
		if !ok {
			t = &legs{}
			ties[*match.MatchNumber] = t
			order = append(order, *match.MatchNumber)
		}
		if t.first == nil {
			t.first = match
		} else {
			t.second = match
		}
	}

	var winners []uuid.UUID
	for _, number := range order {
		t := ties[number]
		if t.first == nil || t.second == nil {
			return fmt.Errorf("%w: tie %d is missing a leg", common.ErrConflict, number)
		}
		winners = append(winners, ResolveTieWinner(*t.first, *t.second, s.fallback))
	}

	rounds, err := GenerateCupPhase(winners, finished.RoundNumber+1, maxMatchNumber+1,
		finished.EndTime, finished.EndTime.Sub(finished.StartTime))
	if err != nil {
		return err
	}

	if err := insertGeneratedRounds(tx, championship.ID, rounds); err != nil {
		return err
	}

	logger.Printf("⚔️ Cup phase advanced: %d winners paired for rounds %d-%d of championship %s",
		len(winners), finished.RoundNumber+1, finished.RoundNumber+2, championship.ID)
	return nil
}

// loadPhaseMatches 加载一个杯赛阶段 (两个回合号) 的全部比赛，按回合号升序
func loadPhaseMatches(tx *sql.Tx, championshipID uuid.UUID, firstRound, secondRound int) ([]database.Match, error) {
	rows, err := tx.Query(`
		SELECT m.id, m.championship_id, m.round_id, m.team_a_id, m.team_b_id,
		       m.score_team_a, m.score_team_b, m.status, m.match_number, m.created_at
		FROM matches m
		JOIN rounds r ON r.id = m.round_id
		WHERE m.championship_id = $1 AND r.round_number IN ($2, $3)
		ORDER BY r.round_number, m.match_number`, championshipID, firstRound, secondRound)
	if err != nil {
		return nil, fmt.Errorf("failed to load phase matches: %w", err)
	}
	defer rows.Close()

	var matches []database.Match
	for rows.Next() {
		var match database.Match
		if err := rows.Scan(&match.ID, &match.ChampionshipID, &match.RoundID, &match.TeamAID, &match.TeamBID,
			&match.ScoreTeamA, &match.ScoreTeamB, &match.Status, &match.MatchNumber, &match.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan phase match: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// insertGeneratedRounds 把生成的回合和比赛写入数据库。
// rounds 表的 UNIQUE(championship_id, round_number) 约束兜底并发重复生成。
func insertGeneratedRounds(tx *sql.Tx, championshipID uuid.UUID, rounds []GeneratedRound) error {
	for _, round := range rounds {
		roundID := uuid.New()
		if _, err := tx.Exec(`
			INSERT INTO rounds (id, championship_id, round_number, start_time, end_time, status)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			roundID, championshipID, round.Number, round.StartTime, round.EndTime, database.StatusScheduled); err != nil {
			return fmt.Errorf("failed to insert round %d: %w", round.Number, err)
		}

		for _, match := range round.Matches {
			if _, err := tx.Exec(`
				INSERT INTO matches (id, championship_id, round_id, team_a_id, team_b_id, status, match_number)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				uuid.New(), championshipID, roundID, match.TeamAID, match.TeamBID,
				database.StatusScheduled, match.MatchNumber); err != nil {
				return fmt.Errorf("failed to insert match in round %d: %w", round.Number, err)
			}
		}
	}
	return nil
}

// AdvanceRound 管理员手动推进：立刻结束锦标赛当前进行中的回合
func (s *RoundService) AdvanceRound(championshipID uuid.UUID) error {
	var roundID uuid.UUID
	err := s.db.QueryRow(`
		SELECT id FROM rounds
		WHERE championship_id = $1 AND status = $2
		ORDER BY round_number LIMIT 1`, championshipID, database.StatusActive).Scan(&roundID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: championship %s has no active round", common.ErrNotFound, championshipID)
	}
	if err != nil {
		return fmt.Errorf("failed to find active round: %w", err)
	}

	return s.FinishRound(roundID)
}

// ListRounds 返回锦标赛全部回合，按回合号升序
func (s *RoundService) ListRounds(championshipID uuid.UUID) ([]database.Round, error) {
	rows, err := s.db.Query(`
		SELECT id, championship_id, round_number, start_time, end_time, status, created_at
		FROM rounds WHERE championship_id = $1
		ORDER BY round_number`, championshipID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []database.Round
	for rows.Next() {
		var round database.Round
		if err := rows.Scan(&round.ID, &round.ChampionshipID, &round.RoundNumber, &round.StartTime,
			&round.EndTime, &round.Status, &round.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

// ListRoundMatches 返回回合内的全部比赛
func (s *RoundService) ListRoundMatches(roundID uuid.UUID) ([]database.Match, error) {
	rows, err := s.db.Query(`
		SELECT id, championship_id, round_id, team_a_id, team_b_id,
		       score_team_a, score_team_b, status, match_number, created_at
		FROM matches WHERE round_id = $1
		ORDER BY match_number NULLS FIRST, created_at`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []database.Match
	for rows.Next() {
		var match database.Match
		if err := rows.Scan(&match.ID, &match.ChampionshipID, &match.RoundID, &match.TeamAID, &match.TeamBID,
			&match.ScoreTeamA, &match.ScoreTeamB, &match.Status, &match.MatchNumber, &match.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// windowOverlaps 判断时间窗是否与已有回合重叠 (excludeID 用于更新时排除自身)。
// 边界相接 (end == start) 不算重叠。
func windowOverlaps(rounds []database.Round, excludeID uuid.UUID, startTime, endTime time.Time) bool {
	for _, round := range rounds {
		if round.ID == excludeID {
			continue
		}
		if round.StartTime.Before(endTime) && round.EndTime.After(startTime) {
			return true
		}
	}
	return false
}

// CreateRound 管理员手动追加回合，时间窗不得与同锦标赛的已有回合重叠。
// 检查和写入在同一事务内，并与赛程生成共用咨询锁，
// 并发创建重叠回合时只有一个能提交。
func (s *RoundService) CreateRound(championshipID uuid.UUID, roundNumber int, startTime, endTime time.Time) (*database.Round, error) {
	if !endTime.After(startTime) {
		return nil, fmt.Errorf("%w: end_time must be after start_time", common.ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock($1)`, scheduleGenerationLockKey); err != nil {
		return nil, fmt.Errorf("failed to acquire schedule lock: %w", err)
	}

	existing, err := listRoundsTx(tx, championshipID)
	if err != nil {
		return nil, err
	}
	if windowOverlaps(existing, uuid.Nil, startTime, endTime) {
		return nil, fmt.Errorf("%w: round window overlaps an existing round", common.ErrValidation)
	}

	round := &database.Round{
		ID:             uuid.New(),
		ChampionshipID: championshipID,
		RoundNumber:    roundNumber,
		StartTime:      startTime,
		EndTime:        endTime,
		Status:         database.StatusScheduled,
	}

	err = tx.QueryRow(`
		INSERT INTO rounds (id, championship_id, round_number, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		round.ID, round.ChampionshipID, round.RoundNumber, round.StartTime, round.EndTime, round.Status).
		Scan(&round.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create round: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit round: %w", err)
	}

	return round, nil
}

// UpdateRound 调整回合时间窗，只允许修改未开始的回合
func (s *RoundService) UpdateRound(roundID uuid.UUID, startTime, endTime time.Time) (*database.Round, error) {
	if !endTime.After(startTime) {
		return nil, fmt.Errorf("%w: end_time must be after start_time", common.ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock($1)`, scheduleGenerationLockKey); err != nil {
		return nil, fmt.Errorf("failed to acquire schedule lock: %w", err)
	}

	var round database.Round
	err = tx.QueryRow(`
		SELECT id, championship_id, round_number, status, created_at
		FROM rounds WHERE id = $1 FOR UPDATE`, roundID).
		Scan(&round.ID, &round.ChampionshipID, &round.RoundNumber, &round.Status, &round.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: round %s", common.ErrNotFound, roundID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load round: %w", err)
	}

	if round.Status != database.StatusScheduled {
		return nil, fmt.Errorf("%w: only scheduled rounds can be rescheduled", common.ErrConflict)
	}

	existing, err := listRoundsTx(tx, round.ChampionshipID)
	if err != nil {
		return nil, err
	}
	if windowOverlaps(existing, roundID, startTime, endTime) {
		return nil, fmt.Errorf("%w: round window overlaps an existing round", common.ErrValidation)
	}

	if _, err := tx.Exec(`UPDATE rounds SET start_time = $2, end_time = $3 WHERE id = $1`,
		roundID, startTime, endTime); err != nil {
		return nil, fmt.Errorf("failed to update round: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit round update: %w", err)
	}

	round.StartTime = startTime
	round.EndTime = endTime
	return &round, nil
}

// listRoundsTx 在事务内加载锦标赛的全部回合
func listRoundsTx(tx *sql.Tx, championshipID uuid.UUID) ([]database.Round, error) {
	rows, err := tx.Query(`
		SELECT id, championship_id, round_number, start_time, end_time, status, created_at
		FROM rounds WHERE championship_id = $1
		ORDER BY round_number`, championshipID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	defer rows.Close()

	var rounds []database.Round
	for rows.Next() {
		var round database.Round
		if err := rows.Scan(&round.ID, &round.ChampionshipID, &round.RoundNumber, &round.StartTime,
			&round.EndTime, &round.Status, &round.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

// DeleteRound 删除回合及其比赛，进行中的回合不可删除
func (s *RoundService) DeleteRound(roundID uuid.UUID) error {
	var status string
	err := s.db.QueryRow(`SELECT status FROM rounds WHERE id = $1`, roundID).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: round %s", common.ErrNotFound, roundID)
	}
	if err != nil {
		return fmt.Errorf("failed to load round: %w", err)
	}

	if status == database.StatusActive {
		return fmt.Errorf("%w: active round cannot be deleted", common.ErrConflict)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM goals WHERE match_id IN (SELECT id FROM matches WHERE round_id = $1)`, roundID); err != nil {
		return fmt.Errorf("failed to delete round goals: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM matches WHERE round_id = $1`, roundID); err != nil {
		return fmt.Errorf("failed to delete round matches: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM rounds WHERE id = $1`, roundID); err != nil {
		return fmt.Errorf("failed to delete round: %w", err)
	}

	return tx.Commit()
}
