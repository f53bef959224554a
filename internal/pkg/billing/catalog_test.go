package billing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		plan        string
		days        int
		lifetime    bool
		autoApprove bool
	}{
		{plan: PlanWeekPass, days: 7, autoApprove: true},
		{plan: PlanMonthPass, days: 30, autoApprove: true},
		{plan: PlanQuarterlyPass, days: 90, autoApprove: true},
		{plan: PlanYearlyPass, days: 365},
		{plan: PlanLifetimePass, lifetime: true},
	}

	for _, tt := range tests {
		tier, err := c.Resolve(tt.plan)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", tt.plan, err)
		}
		if tier.AutoApprove != tt.autoApprove {
			t.Fatalf("%s: AutoApprove = %v, want %v", tt.plan, tier.AutoApprove, tt.autoApprove)
		}
		if tier.IsLifetime() != tt.lifetime {
			t.Fatalf("%s: IsLifetime = %v, want %v", tt.plan, tier.IsLifetime(), tt.lifetime)
		}
		if !tt.lifetime && *tier.DurationDays != tt.days {
			t.Fatalf("%s: DurationDays = %d, want %d", tt.plan, *tier.DurationDays, tt.days)
		}
	}
}

func TestResolveUnknownPlan(t *testing.T) {
	_, err := DefaultCatalog().Resolve("gold-pass")
	if !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", err)
	}
}

func TestResolveNormalizesPlanID(t *testing.T) {
	tier, err := DefaultCatalog().Resolve("  Month-Pass ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier.PlanID != PlanMonthPass {
		t.Fatalf("PlanID = %q", tier.PlanID)
	}
}

func TestTierEndsAt(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	week, _ := DefaultCatalog().Resolve(PlanWeekPass)
	end := week.EndsAt(start)
	if end == nil || !end.Equal(start.Add(7*24*time.Hour)) {
		t.Fatalf("EndsAt = %v", end)
	}

	lifetime, _ := DefaultCatalog().Resolve(PlanLifetimePass)
	if lifetime.EndsAt(start) != nil {
		t.Fatalf("expected lifetime tier without end date")
	}
}

func TestNewCatalogValidation(t *testing.T) {
	if _, err := NewCatalog(); err == nil {
		t.Fatalf("expected empty catalog to fail")
	}
	if _, err := NewCatalog(TierDefinition{PlanID: "a", DurationDays: days(1)}, TierDefinition{PlanID: "A", DurationDays: days(2)}); err == nil {
		t.Fatalf("expected duplicate ids to fail")
	}
	if _, err := NewCatalog(TierDefinition{PlanID: "a", DurationDays: days(0)}); err == nil {
		t.Fatalf("expected non-positive duration to fail")
	}
}

func TestCatalogAllOrder(t *testing.T) {
	all := DefaultCatalog().All()
	want := []string{PlanWeekPass, PlanMonthPass, PlanQuarterlyPass, PlanYearlyPass, PlanLifetimePass}
	if len(all) != len(want) {
		t.Fatalf("len = %d", len(all))
	}
	for i, id := range want {
		if all[i].PlanID != id {
			t.Fatalf("All()[%d] = %q, want %q", i, all[i].PlanID, id)
		}
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yml")
	content := `tiers:
  - id: trial-pass
    display_name: Trial Pass
    duration_days: 3
    auto_approve: true
  - id: forever
    display_name: Forever
    auto_approve: false
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog error: %v", err)
	}
	trial, err := c.Resolve("trial-pass")
	if err != nil || *trial.DurationDays != 3 || !trial.AutoApprove {
		t.Fatalf("unexpected trial tier %+v (%v)", trial, err)
	}
	forever, err := c.Resolve("forever")
	if err != nil || !forever.IsLifetime() {
		t.Fatalf("unexpected forever tier %+v (%v)", forever, err)
	}
	if c.DisplayName("forever") != "Forever" {
		t.Fatalf("DisplayName = %q", c.DisplayName("forever"))
	}
}

func TestLoadCatalogDefaultsWithoutPath(t *testing.T) {
	c, err := LoadCatalog("")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.All()) != 5 {
		t.Fatalf("expected default catalog")
	}
}
