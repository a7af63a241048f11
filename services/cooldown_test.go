package services

import (
	"testing"
	"time"
)

func testPolicy() CooldownPolicy {
	return CooldownPolicy{
		Free:   20 * time.Minute,
		Member: 10 * time.Minute,
		Boost:  5 * time.Minute,
	}
}

func TestResolveFreePlan(t *testing.T) {
	policy := testPolicy()
	now := time.Now()

	got := policy.Resolve("free", nil, now)
	if got != 20*time.Minute {
		t.Errorf("Expected free cooldown to be 20m, got %v", got)
	}
}

func TestResolveMemberPlans(t *testing.T) {
	policy := testPolicy()
	now := time.Now()

	for _, plan := range []string{"monthly", "annual"} {
		got := policy.Resolve(plan, nil, now)
		if got != 10*time.Minute {
			t.Errorf("Expected %s cooldown to be 10m, got %v", plan, got)
		}
	}
}

func TestResolveBoostOverridesPlan(t *testing.T) {
	policy := testPolicy()
	now := time.Now()
	expires := now.Add(time.Hour)

	got := policy.Resolve("free", &expires, now)
	if got != 5*time.Minute {
		t.Errorf("Expected boost cooldown to be 5m, got %v", got)
	}

	got = policy.Resolve("annual", &expires, now)
	if got != 5*time.Minute {
		t.Errorf("Expected boost to override member cooldown, got %v", got)
	}
}

func TestResolveExpiredBoost(t *testing.T) {
	policy := testPolicy()
	now := time.Now()
	expired := now.Add(-time.Minute)

	got := policy.Resolve("free", &expired, now)
	if got != 20*time.Minute {
		t.Errorf("Expected expired boost to fall back to plan cooldown, got %v", got)
	}
}

func TestResolveUnknownPlanFallsBackToFree(t *testing.T) {
	policy := testPolicy()

	got := policy.Resolve("vip", nil, time.Now())
	if got != 20*time.Minute {
		t.Errorf("Expected unknown plan to use free cooldown, got %v", got)
	}
}
