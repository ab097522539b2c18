package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/finsightlabs/finsight-go/models"
)

// scriptedOracle returns canned candidates so no test ever talks to a live
// planning service.
type scriptedOracle struct {
	candidate map[string]interface{}
	err       error
}

func (o scriptedOracle) Propose(context.Context, *Schema, string) (map[string]interface{}, error) {
	return o.candidate, o.err
}

func TestCleanJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"dataset": "kpi_totals"}`, `{"dataset": "kpi_totals"}`},
		{"fenced", "```json\n{\"dataset\": \"kpi_totals\"}\n```", `{"dataset": "kpi_totals"}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose wrapped", "Here is the plan: {\"a\": 1} hope it helps", `{"a": 1}`},
		{"nested braces", `{"filter": {"metric": ["x"]}}`, `{"filter": {"metric": ["x"]}}`},
		{"no braces", "not json at all", "not json at all"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cleanJSON(tc.in); got != tc.want {
				t.Errorf("cleanJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestProposePlanFallsBackOnOracleFailure(t *testing.T) {
	oracle := scriptedOracle{err: errors.New("oracle unreachable")}
	plan := ProposePlan(context.Background(), oracle, "show revenue")

	if plan.Dataset != models.DatasetKPITotals {
		t.Errorf("dataset = %q, want kpi_totals", plan.Dataset)
	}
	if plan.ChartType != models.ChartBar {
		t.Errorf("chart_type = %q, want bar", plan.ChartType)
	}
	if plan.X != "metric" || plan.Y != "value" {
		t.Errorf("axes = (%q, %q), want (metric, value)", plan.X, plan.Y)
	}
	if plan.Filter != nil {
		t.Errorf("fallback plan should carry no filter, got %v", plan.Filter)
	}
}

func TestProposePlanEndToEndScenario(t *testing.T) {
	// Oracle omits x, y, and filter; normalization must supply defaults and
	// infer the metric restriction from the rationale.
	oracle := scriptedOracle{candidate: map[string]interface{}{
		"dataset":    "kpi_totals",
		"chart_type": "bar chart",
		"reason":     "comparing revenue and expenses",
	}}
	plan := ProposePlan(context.Background(), oracle, "show revenue vs expenses")

	want := models.ChartPlan{
		Dataset:   models.DatasetKPITotals,
		ChartType: models.ChartBar,
		X:         "metric",
		Y:         "value",
		Filter:    map[string][]interface{}{"metric": {"totalRevenue", "totalExpenses"}},
		Reason:    "comparing revenue and expenses",
	}
	if !reflect.DeepEqual(plan, want) {
		t.Errorf("plan = %+v, want %+v", plan, want)
	}
}
