package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"chute-service/database"
	"chute-service/pkg/common"
)

// GeneratedMatch 生成的单场比赛
type GeneratedMatch struct {
	TeamAID     uuid.UUID
	TeamBID     uuid.UUID
	MatchNumber *int
}

// GeneratedRound 生成的单个回合及其比赛
type GeneratedRound struct {
	Number    int
	StartTime time.Time
	EndTime   time.Time
	Matches   []GeneratedMatch
}

// ValidateTeamCount 校验锦标赛类型允许的参赛队数。
// 联赛: 10 或 20；杯赛: 8 或 16 (两回合淘汰制要求 2 的幂)。
func ValidateTeamCount(champType string, count int) error {
	switch champType {
	case database.ChampionshipLeague:
		if count != 10 && count != 20 {
			return fmt.Errorf("%w: league requires exactly 10 or 20 teams, got %d", common.ErrValidation, count)
		}
	case database.ChampionshipCup:
		if count != 8 && count != 16 {
			return fmt.Errorf("%w: cup requires exactly 8 or 16 teams, got %d", common.ErrValidation, count)
		}
	default:
		return fmt.Errorf("%w: unknown championship type %q", common.ErrValidation, champType)
	}
	return nil
}

// LeagueTotalRounds 联赛总回合数: 每对球队一回合，N(N-1)/2
func LeagueTotalRounds(teamCount int) int {
	return teamCount * (teamCount - 1) / 2
}

// CupTotalRounds 杯赛总回合数: log2(N) 个阶段，每阶段首回合+次回合
func CupTotalRounds(teamCount int) int {
	phases := 0
	for n := teamCount; n > 1; n /= 2 {
		phases++
	}
	return phases * 2
}

// TotalRoundsFor 按锦标赛类型计算总回合数
func TotalRoundsFor(champType string, teamCount int) int {
	if champType == database.ChampionshipCup {
		return CupTotalRounds(teamCount)
	}
	return LeagueTotalRounds(teamCount)
}

// GenerateLeagueSchedule 生成联赛完整赛程。
// 每个未排序球队对产生一个回合，回合内恰好一场比赛，
// 回合从 start 起按 roundDuration 顺延，回合号从 1 开始。
func GenerateLeagueSchedule(teamIDs []uuid.UUID, start time.Time, roundDuration time.Duration) ([]GeneratedRound, error) {
	if err := ValidateTeamCount(database.ChampionshipLeague, len(teamIDs)); err != nil {
		return nil, err
	}

	var rounds []GeneratedRound
	number := 1
	for i := 0; i < len(teamIDs); i++ {
		for j := i + 1; j < len(teamIDs); j++ {
			roundStart := start.Add(time.Duration(number-1) * roundDuration)
			rounds = append(rounds, GeneratedRound{
				Number:    number,
				StartTime: roundStart,
				EndTime:   roundStart.Add(roundDuration),
				Matches: []GeneratedMatch{
					{TeamAID: teamIDs[i], TeamBID: teamIDs[j]},
				},
			})
			number++
		}
	}

	return rounds, nil
}

// GenerateCupFirstPhase 生成杯赛第一阶段 (首回合+次回合两个回合)。
// 球队按传入顺序两两配对成对阵，次回合主客场互换；
// 后续阶段只有在胜者确定后才通过 GenerateCupPhase 生成。
func GenerateCupFirstPhase(teamIDs []uuid.UUID, start time.Time, roundDuration time.Duration) ([]GeneratedRound, error) {
	if err := ValidateTeamCount(database.ChampionshipCup, len(teamIDs)); err != nil {
		return nil, err
	}
	return GenerateCupPhase(teamIDs, 1, 1, start, roundDuration)
}

// GenerateCupPhase 用给定的球队 (对阵按相邻两队配对) 生成一个杯赛阶段。
// firstRoundNumber 是首回合的回合号，firstMatchNumber 是本阶段首个对阵编号；
// 同一对阵的两场比赛共享 match_number。
func GenerateCupPhase(teamIDs []uuid.UUID, firstRoundNumber, firstMatchNumber int, start time.Time, roundDuration time.Duration) ([]GeneratedRound, error) {
	if len(teamIDs) < 2 || len(teamIDs)%2 != 0 {
		return nil, fmt.Errorf("%w: cup phase requires an even number of teams, got %d", common.ErrValidation, len(teamIDs))
	}

	ida := GeneratedRound{
		Number:    firstRoundNumber,
		StartTime: start,
		EndTime:   start.Add(roundDuration),
	}
	volta := GeneratedRound{
		Number:    firstRoundNumber + 1,
		StartTime: start.Add(roundDuration),
		EndTime:   start.Add(2 * roundDuration),
	}

	for i := 0; i < len(teamIDs); i += 2 {
		matchNumber := firstMatchNumber + i/2
		n := matchNumber
		ida.Matches = append(ida.Matches, GeneratedMatch{
			TeamAID:     teamIDs[i],
			TeamBID:     teamIDs[i+1],
			MatchNumber: &n,
		})
		m := matchNumber
		volta.Matches = append(volta.Matches, GeneratedMatch{
			TeamAID:     teamIDs[i+1],
			TeamBID:     teamIDs[i],
			MatchNumber: &m,
		})
	}

	return []GeneratedRound{ida, volta}, nil
}
