package services

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"chute-service/database"
	"chute-service/logger"
	"chute-service/pkg/common"
)

// TableRow 联赛积分榜中的一行
type TableRow struct {
	Position     int       `json:"position"`
	TeamID       uuid.UUID `json:"team_id"`
	TeamName     string    `json:"team_name"`
	Played       int       `json:"played"`
	Wins         int       `json:"wins"`
	Draws        int       `json:"draws"`
	Losses       int       `json:"losses"`
	GoalsFor     int       `json:"goals_for"`
	GoalsAgainst int       `json:"goals_against"`
	GoalDiff     int       `json:"goal_diff"`
	Points       int       `json:"points"`
}

// CupTie 杯赛一个两回合对阵的汇总视图
type CupTie struct {
	MatchNumber     int        `json:"match_number"`
	TeamAID         uuid.UUID  `json:"team_a_id"`
	TeamAName       string     `json:"team_a_name"`
	TeamBID         uuid.UUID  `json:"team_b_id"`
	TeamBName       string     `json:"team_b_name"`
	FirstLegScoreA  int        `json:"first_leg_score_a"`
	FirstLegScoreB  int        `json:"first_leg_score_b"`
	SecondLegScoreA int        `json:"second_leg_score_a"`
	SecondLegScoreB int        `json:"second_leg_score_b"`
	AggregateA      int        `json:"aggregate_a"`
	AggregateB      int        `json:"aggregate_b"`
	Decided         bool       `json:"decided"`
	WinnerTeamID    *uuid.UUID `json:"winner_team_id,omitempty"`
}

// BuildLeagueTable 从已结束的比赛构建联赛积分榜。
// 胜 3 分平 1 分负 0 分；排序依次按积分、净胜球、进球数，
// 仍相同时保持球队传入顺序 (championship_teams.position) 不变。
func BuildLeagueTable(teams []database.Team, matches []database.Match) []TableRow {
	rows := make([]TableRow, 0, len(teams))
	index := make(map[uuid.UUID]int, len(teams))
	for i, team := range teams {
		index[team.ID] = i
		rows = append(rows, TableRow{TeamID: team.ID, TeamName: team.Name})
	}

	for _, match := range matches {
		if match.Status != database.StatusFinished {
			continue
		}
		a, okA := index[match.TeamAID]
		b, okB := index[match.TeamBID]
		if !okA || !okB {
			continue
		}

		rows[a].Played++
		rows[b].Played++
		rows[a].GoalsFor += match.ScoreTeamA
		rows[a].GoalsAgainst += match.ScoreTeamB
		rows[b].GoalsFor += match.ScoreTeamB
		rows[b].GoalsAgainst += match.ScoreTeamA

		switch {
		case match.ScoreTeamA > match.ScoreTeamB:
			rows[a].Wins++
			rows[a].Points += 3
			rows[b].Losses++
		case match.ScoreTeamA < match.ScoreTeamB:
			rows[b].Wins++
			rows[b].Points += 3
			rows[a].Losses++
		default:
			rows[a].Draws++
			rows[b].Draws++
			rows[a].Points++
			rows[b].Points++
		}
	}

	for i := range rows {
		rows[i].GoalDiff = rows[i].GoalsFor - rows[i].GoalsAgainst
	}

	// 稳定排序保证同分同净胜同进球时名次可复现
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		if rows[i].GoalDiff != rows[j].GoalDiff {
			return rows[i].GoalDiff > rows[j].GoalDiff
		}
		return rows[i].GoalsFor > rows[j].GoalsFor
	})

	for i := range rows {
		rows[i].Position = i + 1
	}

	return rows
}

// BuildCupTies 把同一 match_number 的首回合/次回合配成对阵视图。
// 对阵的 A/B 以首回合的主客为准；matches 需按回合号升序传入。
func BuildCupTies(matches []database.Match, teamNames map[uuid.UUID]string, fallback string) []CupTie {
	type pair struct {
		firstLeg  *database.Match
		secondLeg *database.Match
	}
	pairs := make(map[int]*pair)
	var order []int
	for i := range matches {
		match := &matches[i]
		if match.MatchNumber == nil {
			continue
		}
		p, ok := pairs[*match.MatchNumber]
		if !ok {
			p = &pair{}
			pairs[*match.MatchNumber] = p
			order = append(order, *match.MatchNumber)
		}
		if p.firstLeg == nil {
			p.firstLeg = match
		} else {
			p.secondLeg = match
		}
	}
	sort.Ints(order)

	ties := make([]CupTie, 0, len(order))
	for _, number := range order {
		p := pairs[number]
		if p.firstLeg == nil {
			continue
		}
		tie := CupTie{
			MatchNumber:    number,
			TeamAID:        p.firstLeg.TeamAID,
			TeamAName:      teamNames[p.firstLeg.TeamAID],
			TeamBID:        p.firstLeg.TeamBID,
			TeamBName:      teamNames[p.firstLeg.TeamBID],
			FirstLegScoreA: p.firstLeg.ScoreTeamA,
			FirstLegScoreB: p.firstLeg.ScoreTeamB,
		}
		if p.secondLeg != nil {
			// 次回合主客互换: score_team_a 属于首回合的 B 队
			tie.SecondLegScoreA = p.secondLeg.ScoreTeamB
			tie.SecondLegScoreB = p.secondLeg.ScoreTeamA
		}
		tie.AggregateA = tie.FirstLegScoreA + tie.SecondLegScoreA
		tie.AggregateB = tie.FirstLegScoreB + tie.SecondLegScoreB

		if p.secondLeg != nil &&
			p.firstLeg.Status == database.StatusFinished &&
			p.secondLeg.Status == database.StatusFinished {
			winner := ResolveTieWinner(*p.firstLeg, *p.secondLeg, fallback)
			tie.Decided = true
			tie.WinnerTeamID = &winner
		}

		ties = append(ties, tie)
	}

	return ties
}

// ResolveTieWinner 判定两回合对阵的晋级球队。
// 依次比较总比分、客场进球 (A 队客场进球=次回合 score_team_b，
// B 队客场进球=首回合 score_team_b)，全平时按 fallback 策略取默认晋级方。
func ResolveTieWinner(firstLeg, secondLeg database.Match, fallback string) uuid.UUID {
	aggregateA := firstLeg.ScoreTeamA + secondLeg.ScoreTeamB
	aggregateB := firstLeg.ScoreTeamB + secondLeg.ScoreTeamA

	if aggregateA > aggregateB {
		return firstLeg.TeamAID
	}
	if aggregateB > aggregateA {
		return firstLeg.TeamBID
	}

	awayGoalsA := secondLeg.ScoreTeamB
	awayGoalsB := firstLeg.ScoreTeamB
	if awayGoalsA > awayGoalsB {
		return firstLeg.TeamAID
	}
	if awayGoalsB > awayGoalsA {
		return firstLeg.TeamBID
	}

	if fallback == "second_leg_home" {
		return secondLeg.TeamAID
	}
	return firstLeg.TeamAID
}

// Standings 积分榜响应，联赛填 Table，杯赛填 Ties
type Standings struct {
	ChampionshipID uuid.UUID  `json:"championship_id"`
	Type           string     `json:"type"`
	Table          []TableRow `json:"table,omitempty"`
	Ties           []CupTie   `json:"ties,omitempty"`
}

// StandingsService 积分榜查询服务，结果带短 TTL 缓存
type StandingsService struct {
	db       *sql.DB
	cache    *QueryCache
	fallback string
}

// NewStandingsService 创建积分榜服务
func NewStandingsService(db *sql.DB, cache *QueryCache, cupTiebreakFallback string) *StandingsService {
	return &StandingsService{
		db:       db,
		cache:    cache,
		fallback: cupTiebreakFallback,
	}
}

func standingsCacheKey(championshipID uuid.UUID) string {
	return "standings:" + championshipID.String()
}

// GetStandings 计算锦标赛的当前排名，缓存命中时直接返回
func (s *StandingsService) GetStandings(championshipID uuid.UUID) (*Standings, error) {
	if cached, ok := s.cache.Get(standingsCacheKey(championshipID)); ok {
		return cached.(*Standings), nil
	}

	var champType string
	err := s.db.QueryRow("SELECT type FROM championships WHERE id = $1", championshipID).Scan(&champType)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: championship %s", common.ErrNotFound, championshipID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load championship: %w", err)
	}

	teams, err := s.loadTeams(championshipID)
	if err != nil {
		return nil, err
	}

	matches, err := s.loadMatches(championshipID)
	if err != nil {
		return nil, err
	}

	standings := &Standings{ChampionshipID: championshipID, Type: champType}
	if champType == database.ChampionshipCup {
		names := make(map[uuid.UUID]string, len(teams))
		for _, team := range teams {
			names[team.ID] = team.Name
		}
		standings.Ties = BuildCupTies(matches, names, s.fallback)
	} else {
		standings.Table = BuildLeagueTable(teams, matches)
	}

	s.cache.Set(standingsCacheKey(championshipID), standings)
	return standings, nil
}

// Invalidate 写操作后使该锦标赛的缓存失效
func (s *StandingsService) Invalidate(championshipID uuid.UUID) {
	s.cache.Delete(standingsCacheKey(championshipID))
}

// loadTeams 按 position 顺序加载参赛球队
func (s *StandingsService) loadTeams(championshipID uuid.UUID) ([]database.Team, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.primary_color, t.secondary_color, t.shield_url, t.created_at
		FROM championship_teams ct
		JOIN teams t ON t.id = ct.team_id
		WHERE ct.championship_id = $1
		ORDER BY ct.position`, championshipID)
	if err != nil {
		return nil, fmt.Errorf("failed to load championship teams: %w", err)
	}
	defer rows.Close()

	var teams []database.Team
	for rows.Next() {
		var team database.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.PrimaryColor, &team.SecondaryColor, &team.ShieldURL, &team.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

// loadMatches 按回合号升序加载全部比赛
func (s *StandingsService) loadMatches(championshipID uuid.UUID) ([]database.Match, error) {
	rows, err := s.db.Query(`
		SELECT m.id, m.championship_id, m.round_id, m.team_a_id, m.team_b_id,
		       m.score_team_a, m.score_team_b, m.status, m.match_number, m.created_at
		FROM matches m
		JOIN rounds r ON r.id = m.round_id
		WHERE m.championship_id = $1
		ORDER BY r.round_number, m.match_number NULLS FIRST`, championshipID)
	if err != nil {
		return nil, fmt.Errorf("failed to load matches: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logger.Printf("Loaded %d matches for championship %s", len(matches), championshipID)
	return matches, nil
}
