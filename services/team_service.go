package services

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"chute-service/database"
	"chute-service/pkg/common"
)

// TeamService 球队参照数据管理，仅管理员写入
type TeamService struct {
	db *sql.DB
}

// NewTeamService 创建球队服务
func NewTeamService(db *sql.DB) *TeamService {
	return &TeamService{db: db}
}

// Create 创建球队
func (s *TeamService) Create(name, primaryColor, secondaryColor string, shieldURL *string) (*database.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: team name is required", common.ErrValidation)
	}

	team := &database.Team{
		ID:             uuid.New(),
		Name:           name,
		PrimaryColor:   primaryColor,
		SecondaryColor: secondaryColor,
		ShieldURL:      shieldURL,
	}

	err := s.db.QueryRow(`
		INSERT INTO teams (id, name, primary_color, secondary_color, shield_url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		team.ID, team.Name, team.PrimaryColor, team.SecondaryColor, team.ShieldURL).
		Scan(&team.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}

	return team, nil
}

// Get 按 ID 查询球队
func (s *TeamService) Get(id uuid.UUID) (*database.Team, error) {
	var team database.Team
	err := s.db.QueryRow(`
		SELECT id, name, primary_color, secondary_color, shield_url, created_at
		FROM teams WHERE id = $1`, id).
		Scan(&team.ID, &team.Name, &team.PrimaryColor, &team.SecondaryColor, &team.ShieldURL, &team.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: team %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load team: %w", err)
	}
	return &team, nil
}

// List 返回全部球队，按名称排序
func (s *TeamService) List() ([]database.Team, error) {
	rows, err := s.db.Query(`
		SELECT id, name, primary_color, secondary_color, shield_url, created_at
		FROM teams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []database.Team
	for rows.Next() {
		var team database.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.PrimaryColor, &team.SecondaryColor,
			&team.ShieldURL, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// Update 修改球队信息
func (s *TeamService) Update(id uuid.UUID, name, primaryColor, secondaryColor string, shieldURL *string) (*database.Team, error) {
	team, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if name != "" {
		team.Name = name
	}
	if primaryColor != "" {
		team.PrimaryColor = primaryColor
	}
	if secondaryColor != "" {
		team.SecondaryColor = secondaryColor
	}
	if shieldURL != nil {
		team.ShieldURL = shieldURL
	}

	if _, err := s.db.Exec(`
		UPDATE teams SET name = $2, primary_color = $3, secondary_color = $4, shield_url = $5
		WHERE id = $1`,
		id, team.Name, team.PrimaryColor, team.SecondaryColor, team.ShieldURL); err != nil {
		return nil, fmt.Errorf("failed to update team: %w", err)
	}

	return team, nil
}

// Delete 删除球队。被锦标赛或用户引用的球队不可删除。
func (s *TeamService) Delete(id uuid.UUID) error {
	var championships, users int
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM championship_teams WHERE team_id = $1),
			(SELECT COUNT(*) FROM users WHERE team_heart_id = $1 OR team_defending_id = $1)`,
		id).Scan(&championships, &users)
	if err != nil {
		return fmt.Errorf("failed to check team references: %w", err)
	}

	if championships > 0 {
		return fmt.Errorf("%w: team is enrolled in %d championship(s)", common.ErrConflict, championships)
	}
	if users > 0 {
		return fmt.Errorf("%w: team is referenced by %d user(s)", common.ErrConflict, users)
	}

	res, err := s.db.Exec(`DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("%w: team %s", common.ErrNotFound, id)
	}
	return nil
}
