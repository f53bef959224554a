package billing

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	PlanWeekPass      = "week-pass"
	PlanMonthPass     = "month-pass"
	PlanQuarterlyPass = "quarterly-pass"
	PlanYearlyPass    = "yearly-pass"
	PlanLifetimePass  = "lifetime-pass"
)

// TierDefinition is one purchasable tier. A nil DurationDays means the tier
// never expires.
type TierDefinition struct {
	PlanID       string `yaml:"id" json:"plan_id"`
	DisplayName  string `yaml:"display_name" json:"display_name"`
	DurationDays *int   `yaml:"duration_days" json:"duration_days"`
	AutoApprove  bool   `yaml:"auto_approve" json:"auto_approve"`
}

// IsLifetime reports a tier without an end date.
func (t TierDefinition) IsLifetime() bool {
	return t.DurationDays == nil
}

// EndsAt returns start plus the tier duration, or nil for lifetime tiers.
func (t TierDefinition) EndsAt(start time.Time) *time.Time {
	if t.DurationDays == nil {
		return nil
	}
	end := start.Add(time.Duration(*t.DurationDays) * 24 * time.Hour)
	return &end
}

func days(n int) *int { return &n }

// Catalog maps plan ids to tier definitions. It is immutable after
// construction and safe for concurrent use.
type Catalog struct {
	tiers map[string]TierDefinition
}

// NewCatalog validates and indexes the given tiers.
func NewCatalog(defs ...TierDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, errors.New("tier catalog is empty")
	}
	c := &Catalog{tiers: make(map[string]TierDefinition, len(defs))}
	for _, d := range defs {
		id := normalizePlanID(d.PlanID)
		if id == "" {
			return nil, errors.New("tier without id")
		}
		if _, dup := c.tiers[id]; dup {
			return nil, fmt.Errorf("duplicate tier %q", id)
		}
		if d.DurationDays != nil && *d.DurationDays <= 0 {
			return nil, fmt.Errorf("tier %q: duration_days must be positive", id)
		}
		d.PlanID = id
		if strings.TrimSpace(d.DisplayName) == "" {
			d.DisplayName = id
		}
		if d.DurationDays != nil {
			d.DurationDays = days(*d.DurationDays)
		}
		c.tiers[id] = d
	}
	return c, nil
}

// DefaultCatalog returns the built-in tier set.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(
		TierDefinition{PlanID: PlanWeekPass, DisplayName: "Week Pass", DurationDays: days(7), AutoApprove: true},
		TierDefinition{PlanID: PlanMonthPass, DisplayName: "Month Pass", DurationDays: days(30), AutoApprove: true},
		TierDefinition{PlanID: PlanQuarterlyPass, DisplayName: "Quarterly Pass", DurationDays: days(90), AutoApprove: true},
		TierDefinition{PlanID: PlanYearlyPass, DisplayName: "Yearly Pass", DurationDays: days(365), AutoApprove: false},
		TierDefinition{PlanID: PlanLifetimePass, DisplayName: "Lifetime Pass", DurationDays: nil, AutoApprove: false},
	)
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Tiers []TierDefinition `yaml:"tiers"`
}

// LoadCatalogFile reads a YAML tier catalog:
//
//	tiers:
//	  - id: week-pass
//	    display_name: Week Pass
//	    duration_days: 7
//	    auto_approve: true
func LoadCatalogFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tier catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse tier catalog %s: %w", path, err)
	}
	return NewCatalog(f.Tiers...)
}

// LoadCatalog returns the file catalog when path is set, else the default.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	return LoadCatalogFile(path)
}

// Resolve returns the tier for planID or ErrUnknownPlan.
func (c *Catalog) Resolve(planID string) (TierDefinition, error) {
	t, ok := c.tiers[normalizePlanID(planID)]
	if !ok {
		return TierDefinition{}, fmt.Errorf("%w: %q", ErrUnknownPlan, planID)
	}
	return t, nil
}

// All returns the tiers ordered by duration, lifetime last.
func (c *Catalog) All() []TierDefinition {
	out := make([]TierDefinition, 0, len(c.tiers))
	for _, t := range c.tiers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].DurationDays, out[j].DurationDays
		switch {
		case a == nil && b == nil:
			return out[i].PlanID < out[j].PlanID
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		default:
			return out[i].PlanID < out[j].PlanID
		}
	})
	return out
}

func normalizePlanID(planID string) string {
	return strings.ToLower(strings.TrimSpace(planID))
}

// DisplayName returns the human name of planID, or the id itself.
func (c *Catalog) DisplayName(planID string) string {
	if t, ok := c.tiers[normalizePlanID(planID)]; ok {
		return t.DisplayName
	}
	return planID
}
