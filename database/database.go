package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Migrate 运行数据库迁移
func Migrate(db *sql.DB) error {
	migrations := []string{
		// 球队表
		`CREATE TABLE IF NOT EXISTS teams (
			id UUID PRIMARY KEY,
			name VARCHAR(100) UNIQUE NOT NULL,
			primary_color VARCHAR(20) NOT NULL,
			secondary_color VARCHAR(20) NOT NULL,
			shield_url TEXT,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		// 用户表
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			plan VARCHAR(20) NOT NULL DEFAULT 'free',
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			team_heart_id UUID NOT NULL REFERENCES teams(id),
			team_defending_id UUID NOT NULL REFERENCES teams(id),
			total_goals INTEGER NOT NULL DEFAULT 0,
			gols_current_round INTEGER NOT NULL DEFAULT 0,
			next_allowed_shot_time TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			boost_expires_at TIMESTAMPTZ,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT round_goals_subset CHECK (gols_current_round <= total_goals)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_team_defending ON users(team_defending_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_total_goals ON users(total_goals DESC)`,

		// 锦标赛表
		`CREATE TABLE IF NOT EXISTS championships (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			type VARCHAR(10) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			start_date TIMESTAMPTZ NOT NULL,
			current_round INTEGER NOT NULL DEFAULT 1,
			total_rounds INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,

		// 锦标赛参赛球队表
		`CREATE TABLE IF NOT EXISTS championship_teams (
			championship_id UUID NOT NULL REFERENCES championships(id),
			team_id UUID NOT NULL REFERENCES teams(id),
			position INTEGER NOT NULL,
			PRIMARY KEY (championship_id, team_id)
		)`,

		// 回合表；回合号在锦标赛内唯一，防止并发生成出现重复赛程
		`CREATE TABLE IF NOT EXISTS rounds (
			id UUID PRIMARY KEY,
			championship_id UUID NOT NULL REFERENCES championships(id),
			round_number INTEGER NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT round_window CHECK (end_time > start_time),
			UNIQUE (championship_id, round_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_championship ON rounds(championship_id)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_status ON rounds(status)`,

		// 比赛表
		`CREATE TABLE IF NOT EXISTS matches (
			id UUID PRIMARY KEY,
			championship_id UUID NOT NULL REFERENCES championships(id),
			round_id UUID NOT NULL REFERENCES rounds(id),
			team_a_id UUID NOT NULL REFERENCES teams(id),
			team_b_id UUID NOT NULL REFERENCES teams(id),
			score_team_a INTEGER NOT NULL DEFAULT 0,
			score_team_b INTEGER NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			match_number INTEGER,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_round ON matches(round_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_teams ON matches(team_a_id, team_b_id)`,

		// 进球事件表 (只追加)
		`CREATE TABLE IF NOT EXISTS goals (
			id UUID PRIMARY KEY,
			match_id UUID NOT NULL REFERENCES matches(id),
			user_id UUID NOT NULL REFERENCES users(id),
			team_id UUID NOT NULL REFERENCES teams(id),
			scored_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_match ON goals(match_id, scored_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_goals_user ON goals(user_id)`,

		// 等级表
		`CREATE TABLE IF NOT EXISTS levels (
			id BIGSERIAL PRIMARY KEY,
			level_number INTEGER UNIQUE NOT NULL,
			name VARCHAR(100) NOT NULL,
			min_goals INTEGER NOT NULL,
			max_goals INTEGER NOT NULL,
			reward_description TEXT NOT NULL DEFAULT '',
			CONSTRAINT level_range CHECK (max_goals >= min_goals)
		)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return SeedLevels(db)
}

// SeedLevels 写入默认的十级进阶表 (已存在时跳过)
func SeedLevels(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM levels`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count levels: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := []struct {
		number   int
		name     string
		min, max int
	}{
		{1, "Estreante da Várzea", 0, 9},
		{2, "Matador da Pelada", 10, 19},
		{3, "Craque da Vila", 20, 49},
		{4, "Artilheiro do Bairro", 50, 99},
		{5, "Ídolo Local", 100, 199},
		{6, "Astro Estadual", 200, 399},
		{7, "Maestro Nacional", 400, 699},
		{8, "Bola de Ouro Regional", 700, 999},
		{9, "Lenda do Futebol", 1000, 1499},
		{10, "Imortal das Quatro Linhas", 1500, 999999},
	}

	for _, l := range seed {
		_, err := db.Exec(
			`INSERT INTO levels (level_number, name, min_goals, max_goals) VALUES ($1, $2, $3, $4)`,
			l.number, l.name, l.min, l.max,
		)
		if err != nil {
			return fmt.Errorf("failed to seed level %d: %w", l.number, err)
		}
	}

	return nil
}
