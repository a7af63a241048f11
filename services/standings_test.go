package services

import (
	"testing"

	"github.com/google/uuid"

	"chute-service/database"
)

func makeTeams(names ...string) []database.Team {
	teams := make([]database.Team, len(names))
	for i, name := range names {
		teams[i] = database.Team{ID: uuid.New(), Name: name}
	}
	return teams
}

func finishedMatch(teamA, teamB uuid.UUID, scoreA, scoreB int) database.Match {
	return database.Match{
		ID:         uuid.New(),
		TeamAID:    teamA,
		TeamBID:    teamB,
		ScoreTeamA: scoreA,
		ScoreTeamB: scoreB,
		Status:     database.StatusFinished,
	}
}

func TestBuildLeagueTable(t *testing.T) {
	teams := makeTeams("Azul", "Rubro", "Verde")
	a, b, c := teams[0].ID, teams[1].ID, teams[2].ID

	matches := []database.Match{
		finishedMatch(a, b, 2, 0), // Azul 胜
		finishedMatch(b, c, 1, 1), // 平
		finishedMatch(a, c, 0, 3), // Verde 胜
	}

	table := BuildLeagueTable(teams, matches)

	if len(table) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(table))
	}

	if table[0].TeamID != c {
		t.Errorf("Expected Verde at position 1, got %s", table[0].TeamName)
	}
	if table[0].Points != 4 {
		t.Errorf("Expected Verde to have 4 points, got %d", table[0].Points)
	}
	if table[0].GoalDiff != 3 {
		t.Errorf("Expected Verde goal diff 3, got %d", table[0].GoalDiff)
	}

	if table[1].TeamID != a {
		t.Errorf("Expected Azul at position 2, got %s", table[1].TeamName)
	}
	if table[1].Points != 3 || table[1].GoalDiff != -1 {
		t.Errorf("Expected Azul 3 points diff -1, got %d points diff %d", table[1].Points, table[1].GoalDiff)
	}

	if table[2].TeamID != b || table[2].Points != 1 {
		t.Errorf("Expected Rubro last with 1 point, got %s with %d", table[2].TeamName, table[2].Points)
	}

	for i, row := range table {
		if row.Position != i+1 {
			t.Errorf("Expected position %d, got %d", i+1, row.Position)
		}
	}
}

func TestBuildLeagueTableIgnoresUnfinishedMatches(t *testing.T) {
	teams := makeTeams("Azul", "Rubro")
	a, b := teams[0].ID, teams[1].ID

	active := finishedMatch(a, b, 5, 0)
	active.Status = database.StatusActive

	table := BuildLeagueTable(teams, []database.Match{active})

	if table[0].Played != 0 || table[1].Played != 0 {
		t.Error("Expected active matches to be excluded from the table")
	}
}

func TestBuildLeagueTableIsDeterministicOnFullTie(t *testing.T) {
	teams := makeTeams("Primeiro", "Segundo")
	// 没有任何已结束的比赛，两队完全同分
	first := BuildLeagueTable(teams, nil)
	second := BuildLeagueTable(teams, nil)

	if first[0].TeamID != teams[0].ID {
		t.Error("Expected enrollment order to break full ties")
	}
	if first[0].TeamID != second[0].TeamID || first[1].TeamID != second[1].TeamID {
		t.Error("Expected identical input to produce identical ordering")
	}
}

func cupLegs(teamA, teamB uuid.UUID, matchNumber, idaA, idaB, voltaA, voltaB int) (database.Match, database.Match) {
	n1, n2 := matchNumber, matchNumber
	ida := finishedMatch(teamA, teamB, idaA, idaB)
	ida.MatchNumber = &n1
	volta := finishedMatch(teamB, teamA, voltaA, voltaB)
	volta.MatchNumber = &n2
	return ida, volta
}

func TestResolveTieWinnerByAggregate(t *testing.T) {
	teamA, teamB := uuid.New(), uuid.New()
	// 首回合 A 3-0 B，次回合 B 1-0 A，总比分 3-1
	ida, volta := cupLegs(teamA, teamB, 1, 3, 0, 1, 0)

	if winner := ResolveTieWinner(ida, volta, "first_leg_home"); winner != teamA {
		t.Errorf("Expected team A to win on aggregate")
	}
}

func TestResolveTieWinnerByAwayGoals(t *testing.T) {
	teamA, teamB := uuid.New(), uuid.New()
	// 首回合 A 1-1 B，次回合 B 2-2 A，总比分 3-3，A 客场进 2 球，B 客场进 1 球
	ida, volta := cupLegs(teamA, teamB, 1, 1, 1, 2, 2)

	if winner := ResolveTieWinner(ida, volta, "first_leg_home"); winner != teamA {
		t.Errorf("Expected team A to win on away goals")
	}
}

func TestResolveTieWinnerAwayGoalsBeatFallback(t *testing.T) {
	teamA, teamB := uuid.New(), uuid.New()
	// 首回合 A 2-1 B，次回合 B 1-0 A，总比分 2-2，但 B 有 1 个客场进球
	ida, volta := cupLegs(teamA, teamB, 1, 2, 1, 1, 0)

	for _, fallback := range []string{"first_leg_home", "second_leg_home"} {
		if winner := ResolveTieWinner(ida, volta, fallback); winner != teamB {
			t.Errorf("Expected team B to win on away goals regardless of fallback %q", fallback)
		}
	}
}

func TestResolveTieWinnerFallback(t *testing.T) {
	teamA, teamB := uuid.New(), uuid.New()
	// 首回合 A 1-0 B，次回合 B 1-0 A，总比分 1-1，双方客场进球都是 0
	ida, volta := cupLegs(teamA, teamB, 1, 1, 0, 1, 0)

	if winner := ResolveTieWinner(ida, volta, "first_leg_home"); winner != teamA {
		t.Errorf("Expected first leg home team to advance on full tie")
	}
	if winner := ResolveTieWinner(ida, volta, "second_leg_home"); winner != teamB {
		t.Errorf("Expected second leg home team to advance with alternate fallback")
	}
}

func TestBuildCupTies(t *testing.T) {
	teamA, teamB := uuid.New(), uuid.New()
	teamC, teamD := uuid.New(), uuid.New()

	ida1, volta1 := cupLegs(teamA, teamB, 1, 1, 0, 1, 0)
	ida2, volta2 := cupLegs(teamC, teamD, 2, 0, 0, 0, 1)
	// 次回合还没结束
	volta2.Status = database.StatusActive

	names := map[uuid.UUID]string{
		teamA: "Azul", teamB: "Rubro", teamC: "Verde", teamD: "Ouro",
	}

	ties := BuildCupTies([]database.Match{ida1, ida2, volta1, volta2}, names, "first_leg_home")

	if len(ties) != 2 {
		t.Fatalf("Expected 2 ties, got %d", len(ties))
	}

	first := ties[0]
	if first.MatchNumber != 1 {
		t.Errorf("Expected tie 1 first, got %d", first.MatchNumber)
	}
	if first.AggregateA != 1 || first.AggregateB != 1 {
		t.Errorf("Expected aggregate 1-1, got %d-%d", first.AggregateA, first.AggregateB)
	}
	if !first.Decided || first.WinnerTeamID == nil || *first.WinnerTeamID != teamA {
		t.Error("Expected tie 1 to be decided for team A via fallback")
	}

	second := ties[1]
	if second.Decided || second.WinnerTeamID != nil {
		t.Error("Expected tie 2 to be undecided while a leg is active")
	}
	if second.SecondLegScoreA != 1 {
		t.Errorf("Expected running second leg score to be reported, got %d", second.SecondLegScoreA)
	}
}
