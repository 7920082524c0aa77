package model

// Plan is a purchasable entitlement window with a fixed duration and a
// price in BRL centavos. Catalog entries are reference data: they are
// never mutated at runtime.
type Plan struct {
	ID           string
	Name         string
	PriceBRL     int64 // centavos
	DurationDays int
}

const (
	PlanMonthly    = "monthly"
	PlanQuarterly  = "quarterly"
	PlanSemiannual = "semiannual"
	PlanAnnual     = "annual"
)

var planCatalog = map[string]Plan{
	PlanMonthly:    {ID: PlanMonthly, Name: "Plano Mensal", PriceBRL: 990, DurationDays: 30},
	PlanQuarterly:  {ID: PlanQuarterly, Name: "Plano Trimestral", PriceBRL: 2490, DurationDays: 90},
	PlanSemiannual: {ID: PlanSemiannual, Name: "Plano Semestral", PriceBRL: 4490, DurationDays: 180},
	PlanAnnual:     {ID: PlanAnnual, Name: "Plano Anual", PriceBRL: 7990, DurationDays: 365},
}

// planAliases maps plan identifiers issued by the legacy frontend to
// catalog ids. Payments created under the old naming can still be
// confirmed long after the rename.
var planAliases = map[string]string{
	"mensal":     PlanMonthly,
	"trimestral": PlanQuarterly,
	"semestral":  PlanSemiannual,
	"anual":      PlanAnnual,
}

// LookupPlan resolves a plan identifier (canonical or legacy alias) to a
// catalog entry. The boolean is false for identifiers outside the catalog;
// callers must never substitute a default plan.
func LookupPlan(id string) (Plan, bool) {
	if canonical, ok := planAliases[id]; ok {
		id = canonical
	}
	p, ok := planCatalog[id]
	return p, ok
}

// Plans returns the catalog in a stable order for listing endpoints.
func Plans() []Plan {
	out := make([]Plan, 0, len(planCatalog))
	for _, id := range []string{PlanMonthly, PlanQuarterly, PlanSemiannual, PlanAnnual} {
		out = append(out, planCatalog[id])
	}
	return out
}
