package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"chute-service/pkg/common"
)

func makeTeamIDs(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	return ids
}

func TestValidateTeamCount(t *testing.T) {
	cases := []struct {
		champType string
		count     int
		valid     bool
	}{
		{"league", 10, true},
		{"league", 20, true},
		{"league", 8, false},
		{"league", 12, false},
		{"cup", 8, true},
		{"cup", 16, true},
		{"cup", 10, false},
		{"cup", 4, false},
		{"friendly", 10, false},
	}

	for _, c := range cases {
		err := ValidateTeamCount(c.champType, c.count)
		if c.valid && err != nil {
			t.Errorf("Expected %s with %d teams to be valid, got %v", c.champType, c.count, err)
		}
		if !c.valid {
			if err == nil {
				t.Errorf("Expected %s with %d teams to be rejected", c.champType, c.count)
			} else if !errors.Is(err, common.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		}
	}
}

func TestGenerateLeagueSchedule(t *testing.T) {
	teams := makeTeamIDs(10)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	duration := 24 * time.Hour

	rounds, err := GenerateLeagueSchedule(teams, start, duration)
	if err != nil {
		t.Fatalf("Expected schedule to be generated, got %v", err)
	}

	if len(rounds) != 45 {
		t.Fatalf("Expected 45 rounds for 10 teams, got %d", len(rounds))
	}
	if LeagueTotalRounds(10) != 45 {
		t.Errorf("Expected LeagueTotalRounds(10) to be 45, got %d", LeagueTotalRounds(10))
	}

	seen := make(map[[2]uuid.UUID]bool)
	for i, round := range rounds {
		if round.Number != i+1 {
			t.Errorf("Expected round number %d, got %d", i+1, round.Number)
		}
		if len(round.Matches) != 1 {
			t.Fatalf("Expected exactly one match per league round, got %d", len(round.Matches))
		}

		expectedStart := start.Add(time.Duration(i) * duration)
		if !round.StartTime.Equal(expectedStart) {
			t.Errorf("Expected round %d to start at %v, got %v", round.Number, expectedStart, round.StartTime)
		}
		if !round.EndTime.Equal(expectedStart.Add(duration)) {
			t.Errorf("Expected round %d to end at %v, got %v", round.Number, expectedStart.Add(duration), round.EndTime)
		}

		match := round.Matches[0]
		if match.TeamAID == match.TeamBID {
			t.Errorf("Round %d pairs a team against itself", round.Number)
		}
		key := [2]uuid.UUID{match.TeamAID, match.TeamBID}
		reversed := [2]uuid.UUID{match.TeamBID, match.TeamAID}
		if seen[key] || seen[reversed] {
			t.Errorf("Pair in round %d already scheduled", round.Number)
		}
		seen[key] = true
	}
}

func TestGenerateLeagueScheduleRejectsBadCount(t *testing.T) {
	_, err := GenerateLeagueSchedule(makeTeamIDs(7), time.Now(), 24*time.Hour)
	if !errors.Is(err, common.ErrValidation) {
		t.Errorf("Expected validation error for 7 teams, got %v", err)
	}
}

func TestGenerateCupFirstPhase(t *testing.T) {
	teams := makeTeamIDs(8)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	duration := 24 * time.Hour

	rounds, err := GenerateCupFirstPhase(teams, start, duration)
	if err != nil {
		t.Fatalf("Expected cup phase to be generated, got %v", err)
	}

	if len(rounds) != 2 {
		t.Fatalf("Expected 2 rounds for a cup phase, got %d", len(rounds))
	}

	firstLeg, secondLeg := rounds[0], rounds[1]
	if firstLeg.Number != 1 || secondLeg.Number != 2 {
		t.Errorf("Expected round numbers 1 and 2, got %d and %d", firstLeg.Number, secondLeg.Number)
	}
	if len(firstLeg.Matches) != 4 || len(secondLeg.Matches) != 4 {
		t.Fatalf("Expected 4 ties for 8 teams, got %d and %d", len(firstLeg.Matches), len(secondLeg.Matches))
	}
	if !secondLeg.StartTime.Equal(firstLeg.EndTime) {
		t.Errorf("Expected second leg to start when first leg ends")
	}

	for i := range firstLeg.Matches {
		ida := firstLeg.Matches[i]
		volta := secondLeg.Matches[i]

		if ida.MatchNumber == nil || volta.MatchNumber == nil {
			t.Fatal("Expected cup matches to carry a match number")
		}
		if *ida.MatchNumber != i+1 {
			t.Errorf("Expected tie %d to have match number %d, got %d", i, i+1, *ida.MatchNumber)
		}
		if *ida.MatchNumber != *volta.MatchNumber {
			t.Errorf("Expected both legs of tie %d to share a match number", i)
		}
		if ida.TeamAID != volta.TeamBID || ida.TeamBID != volta.TeamAID {
			t.Errorf("Expected second leg of tie %d to swap home and away", i)
		}
	}
}

func TestCupTotalRounds(t *testing.T) {
	if got := CupTotalRounds(8); got != 6 {
		t.Errorf("Expected 6 total rounds for 8 teams, got %d", got)
	}
	if got := CupTotalRounds(16); got != 8 {
		t.Errorf("Expected 8 total rounds for 16 teams, got %d", got)
	}
}

func TestTotalRoundsForTracksTeamSetSize(t *testing.T) {
	// 编辑参赛球队后 total_rounds 必须按新球队数重算
	if got := TotalRoundsFor("league", 10); got != 45 {
		t.Errorf("Expected 45 rounds for a 10-team league, got %d", got)
	}
	if got := TotalRoundsFor("league", 20); got != 190 {
		t.Errorf("Expected 190 rounds for a 20-team league, got %d", got)
	}
	if got := TotalRoundsFor("cup", 8); got != 6 {
		t.Errorf("Expected 6 rounds for an 8-team cup, got %d", got)
	}
	if got := TotalRoundsFor("cup", 16); got != 8 {
		t.Errorf("Expected 8 rounds for a 16-team cup, got %d", got)
	}
}

func TestGenerateCupPhaseContinuesNumbering(t *testing.T) {
	winners := makeTeamIDs(4)
	start := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	rounds, err := GenerateCupPhase(winners, 3, 5, start, 24*time.Hour)
	if err != nil {
		t.Fatalf("Expected phase to be generated, got %v", err)
	}

	if rounds[0].Number != 3 || rounds[1].Number != 4 {
		t.Errorf("Expected round numbers 3 and 4, got %d and %d", rounds[0].Number, rounds[1].Number)
	}
	if *rounds[0].Matches[0].MatchNumber != 5 || *rounds[0].Matches[1].MatchNumber != 6 {
		t.Errorf("Expected match numbers to continue from 5, got %d and %d",
			*rounds[0].Matches[0].MatchNumber, *rounds[0].Matches[1].MatchNumber)
	}
}

func TestGenerateCupPhaseRejectsOddTeams(t *testing.T) {
	_, err := GenerateCupPhase(makeTeamIDs(3), 1, 1, time.Now(), 24*time.Hour)
	if !errors.Is(err, common.ErrValidation) {
		t.Errorf("Expected validation error for odd team count, got %v", err)
	}
}
