package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"chute-service/database"
)

func testRound(start, end time.Time) database.Round {
	return database.Round{ID: uuid.New(), StartTime: start, EndTime: end}
}

func TestWindowOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	day := 24 * time.Hour
	existing := []database.Round{
		testRound(base, base.Add(day)),
		testRound(base.Add(2*day), base.Add(3*day)),
	}

	cases := []struct {
		name    string
		start   time.Time
		end     time.Time
		overlap bool
	}{
		{"inside existing", base.Add(time.Hour), base.Add(2 * time.Hour), true},
		{"covers existing", base.Add(-time.Hour), base.Add(day + time.Hour), true},
		{"partial overlap", base.Add(12 * time.Hour), base.Add(36 * time.Hour), true},
		{"in the gap", base.Add(day), base.Add(2 * day), false},
		{"touching boundary", base.Add(3 * day), base.Add(4 * day), false},
		{"far after", base.Add(10 * day), base.Add(11 * day), false},
	}

	for _, c := range cases {
		if got := windowOverlaps(existing, uuid.Nil, c.start, c.end); got != c.overlap {
			t.Errorf("Expected %s overlap=%v, got %v", c.name, c.overlap, got)
		}
	}
}

func TestWindowOverlapsExcludesSelf(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	self := testRound(base, base.Add(24*time.Hour))

	// 回合重排到与旧时间窗重叠的位置时不能和自己冲突
	if windowOverlaps([]database.Round{self}, self.ID, base.Add(time.Hour), base.Add(25*time.Hour)) {
		t.Error("Expected a round not to overlap with itself")
	}

	other := testRound(base, base.Add(24*time.Hour))
	if !windowOverlaps([]database.Round{self, other}, self.ID, base.Add(time.Hour), base.Add(25*time.Hour)) {
		t.Error("Expected overlap with another round to still be detected")
	}
}
