package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/finsightlabs/finsight-go/models"
)

// stubFrames serves canned frames without a live store.
type stubFrames struct {
	frames map[models.Dataset]*models.Frame
	err    error
}

func (s stubFrames) FrameFor(_ context.Context, dataset models.Dataset) (*models.Frame, error) {
	if s.err != nil {
		return nil, s.err
	}
	if frame, ok := s.frames[dataset]; ok {
		return frame, nil
	}
	return models.NewFrame(), nil
}

func TestPipelineGenerate(t *testing.T) {
	pipeline := &Pipeline{
		Frames: stubFrames{frames: map[models.Dataset]*models.Frame{
			models.DatasetKPITotals: totalsFrame(),
		}},
		Oracle: scriptedOracle{candidate: map[string]interface{}{
			"dataset":    "kpi_totals",
			"chart_type": "bar chart",
			"reason":     "comparing revenue and expenses",
		}},
	}

	result, err := pipeline.Generate(context.Background(), "show revenue vs expenses")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Rows != 2 {
		t.Errorf("rows = %d, want 2 (profit filtered out)", result.Rows)
	}
	if result.Graph == "" {
		t.Error("graph is empty")
	}
	if !strings.Contains(result.AssistantText, "Rows: 2") {
		t.Errorf("assistant text = %q, want row count", result.AssistantText)
	}
}

func TestPipelineGenerateOracleFailureStillRenders(t *testing.T) {
	pipeline := &Pipeline{
		Frames: stubFrames{frames: map[models.Dataset]*models.Frame{
			models.DatasetKPITotals: totalsFrame(),
		}},
		Oracle: scriptedOracle{err: errors.New("oracle down")},
	}
	result, err := pipeline.Generate(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Generate must not fail on oracle errors: %v", err)
	}
	if result.Plan.Dataset != models.DatasetKPITotals || result.Rows != 3 {
		t.Errorf("fallback plan result = %+v", result)
	}
}

func TestPipelineGenerateEmptyDataset(t *testing.T) {
	pipeline := &Pipeline{
		Frames: stubFrames{frames: map[models.Dataset]*models.Frame{}},
		Oracle: scriptedOracle{candidate: map[string]interface{}{
			"dataset":    "products",
			"chart_type": "scatter",
		}},
	}
	result, err := pipeline.Generate(context.Background(), "plot products")
	if err != nil {
		t.Fatalf("empty dataset must not error: %v", err)
	}
	if result.Rows != 0 || result.Graph == "" {
		t.Errorf("want placeholder graph for empty dataset, got rows=%d graph empty=%v", result.Rows, result.Graph == "")
	}
}

func TestPipelineGenerateStoreUnavailable(t *testing.T) {
	pipeline := &Pipeline{
		Frames: stubFrames{err: errors.New("connection refused")},
		Oracle: scriptedOracle{err: errors.New("oracle down")},
	}
	if _, err := pipeline.Generate(context.Background(), "anything"); err == nil {
		t.Fatal("store unavailability must surface as an error")
	}
}
