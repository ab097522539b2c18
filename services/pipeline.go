package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/finsightlabs/finsight-go/models"
	"github.com/finsightlabs/finsight-go/utils/charts"
)

// Pipeline wires the per-request flow: prompt -> plan -> frame -> filter ->
// calculation -> chart. Both collaborators are injected so the pipeline
// runs without a live store or oracle in tests.
type Pipeline struct {
	Frames FrameSource
	Oracle Oracle
}

// DashboardResult is the outcome of one generate call.
type DashboardResult struct {
	Plan          models.ChartPlan
	Rows          int
	Graph         string // base64-encoded PNG
	AssistantText string
}

// Generate runs the full pipeline for one prompt. Oracle failures degrade
// to the fallback plan and rendering failures degrade to a placeholder
// image; only store unavailability is returned as an error.
func (p *Pipeline) Generate(ctx context.Context, prompt string) (*DashboardResult, error) {
	plan := ProposePlan(ctx, p.Oracle, prompt)

	frame, err := p.Frames.FrameFor(ctx, plan.Dataset)
	if err != nil {
		return nil, err
	}

	frame = ApplyFilter(frame, plan)
	frame = ApplyCalculation(frame, plan)

	graph := charts.Render(frame, plan)

	planJSON, _ := json.Marshal(plan)
	return &DashboardResult{
		Plan:          plan,
		Rows:          frame.Len(),
		Graph:         graph,
		AssistantText: fmt.Sprintf("Plan: %s. Rows: %d", planJSON, frame.Len()),
	}, nil
}
