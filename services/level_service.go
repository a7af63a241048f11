package services

import (
	"database/sql"
	"fmt"

	"chute-service/database"
	"chute-service/pkg/common"
)

// LevelService 进阶等级管理。等级按累计进球数划分闭区间，
// 区间不允许重叠，等级号不允许重复。
type LevelService struct {
	db *sql.DB
}

// NewLevelService 创建等级服务
func NewLevelService(db *sql.DB) *LevelService {
	return &LevelService{db: db}
}

// List 返回全部等级，按等级号升序
func (s *LevelService) List() ([]database.Level, error) {
	rows, err := s.db.Query(`
		SELECT id, level_number, name, min_goals, max_goals, reward_description
		FROM levels ORDER BY level_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	defer rows.Close()

	var levels []database.Level
	for rows.Next() {
		var level database.Level
		if err := rows.Scan(&level.ID, &level.LevelNumber, &level.Name,
			&level.MinGoals, &level.MaxGoals, &level.RewardDescription); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

// LevelForGoals 返回累计进球数对应的等级。
// 超出最高档上限时落到最高档。
func (s *LevelService) LevelForGoals(totalGoals int) (*database.Level, error) {
	var level database.Level
	err := s.db.QueryRow(`
		SELECT id, level_number, name, min_goals, max_goals, reward_description
		FROM levels
		WHERE min_goals <= $1 AND max_goals >= $1
		ORDER BY level_number LIMIT 1`, totalGoals).
		Scan(&level.ID, &level.LevelNumber, &level.Name, &level.MinGoals, &level.MaxGoals, &level.RewardDescription)
	if err == sql.ErrNoRows {
		err = s.db.QueryRow(`
			SELECT id, level_number, name, min_goals, max_goals, reward_description
			FROM levels ORDER BY level_number DESC LIMIT 1`).
			Scan(&level.ID, &level.LevelNumber, &level.Name, &level.MinGoals, &level.MaxGoals, &level.RewardDescription)
	}
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no levels configured", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve level: %w", err)
	}
	return &level, nil
}

// Create 新增等级，区间与已有等级重叠或等级号重复时拒绝
func (s *LevelService) Create(levelNumber, minGoals, maxGoals int, name, reward string) (*database.Level, error) {
	if err := s.validateRange(0, levelNumber, minGoals, maxGoals, name); err != nil {
		return nil, err
	}

	level := &database.Level{
		LevelNumber:       levelNumber,
		Name:              name,
		MinGoals:          minGoals,
		MaxGoals:          maxGoals,
		RewardDescription: reward,
	}

	err := s.db.QueryRow(`
		INSERT INTO levels (level_number, name, min_goals, max_goals, reward_description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		level.LevelNumber, level.Name, level.MinGoals, level.MaxGoals, level.RewardDescription).
		Scan(&level.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create level: %w", err)
	}

	return level, nil
}

// Update 修改等级定义
func (s *LevelService) Update(id int64, levelNumber, minGoals, maxGoals int, name, reward string) (*database.Level, error) {
	if err := s.validateRange(id, levelNumber, minGoals, maxGoals, name); err != nil {
		return nil, err
	}

	res, err := s.db.Exec(`
		UPDATE levels SET level_number = $2, name = $3, min_goals = $4, max_goals = $5, reward_description = $6
		WHERE id = $1`, id, levelNumber, name, minGoals, maxGoals, reward)
	if err != nil {
		return nil, fmt.Errorf("failed to update level: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, fmt.Errorf("%w: level %d", common.ErrNotFound, id)
	}

	return &database.Level{
		ID:                id,
		LevelNumber:       levelNumber,
		Name:              name,
		MinGoals:          minGoals,
		MaxGoals:          maxGoals,
		RewardDescription: reward,
	}, nil
}

// Delete 删除等级
func (s *LevelService) Delete(id int64) error {
	res, err := s.db.Exec(`DELETE FROM levels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete level: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: level %d", common.ErrNotFound, id)
	}
	return nil
}

// validateRange 校验等级区间与等级号，excludeID 用于更新时排除自身
func (s *LevelService) validateRange(excludeID int64, levelNumber, minGoals, maxGoals int, name string) error {
	if name == "" {
		return fmt.Errorf("%w: level name is required", common.ErrValidation)
	}
	if levelNumber <= 0 {
		return fmt.Errorf("%w: level number must be positive", common.ErrValidation)
	}
	if minGoals < 0 || maxGoals < minGoals {
		return fmt.Errorf("%w: invalid goal range [%d, %d]", common.ErrValidation, minGoals, maxGoals)
	}

	var conflicts int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM levels
		WHERE id != $1 AND (level_number = $2 OR (min_goals <= $4 AND max_goals >= $3))`,
		excludeID, levelNumber, minGoals, maxGoals).Scan(&conflicts)
	if err != nil {
		return fmt.Errorf("failed to check level conflicts: %w", err)
	}
	if conflicts > 0 {
		return fmt.Errorf("%w: level number or goal range overlaps an existing level", common.ErrValidation)
	}
	return nil
}
