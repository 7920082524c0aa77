package model

import "testing"

func TestLookupPlan(t *testing.T) {
	cases := []struct {
		id   string
		want string
		days int
	}{
		{"monthly", PlanMonthly, 30},
		{"quarterly", PlanQuarterly, 90},
		{"semiannual", PlanSemiannual, 180},
		{"annual", PlanAnnual, 365},
		// Legacy frontend identifiers resolve to the same catalog entries.
		{"mensal", PlanMonthly, 30},
		{"trimestral", PlanQuarterly, 90},
		{"semestral", PlanSemiannual, 180},
		{"anual", PlanAnnual, 365},
	}
	for _, tc := range cases {
		p, ok := LookupPlan(tc.id)
		if !ok {
			t.Fatalf("LookupPlan(%q) not found", tc.id)
		}
		if p.ID != tc.want || p.DurationDays != tc.days {
			t.Fatalf("LookupPlan(%q) = %+v, want id=%s days=%d", tc.id, p, tc.want, tc.days)
		}
	}
}

func TestLookupPlanUnknown(t *testing.T) {
	for _, id := range []string{"", "platinum", "MONTHLY", "monthly "} {
		if _, ok := LookupPlan(id); ok {
			t.Fatalf("LookupPlan(%q) found a plan, want miss", id)
		}
	}
}

func TestPlansStableOrder(t *testing.T) {
	plans := Plans()
	if len(plans) != 4 {
		t.Fatalf("len(Plans()) = %d, want 4", len(plans))
	}
	want := []string{PlanMonthly, PlanQuarterly, PlanSemiannual, PlanAnnual}
	for i, p := range plans {
		if p.ID != want[i] {
			t.Fatalf("Plans()[%d] = %s, want %s", i, p.ID, want[i])
		}
		if p.DurationDays <= 0 || p.PriceBRL <= 0 {
			t.Fatalf("catalog entry %s has non-positive duration or price", p.ID)
		}
	}
}
