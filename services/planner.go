package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/finsightlabs/finsight-go/models"
)

// Oracle is the natural-language planning collaborator. It returns a
// loosely typed candidate plan; callers must treat it as untrusted and
// fallible.
type Oracle interface {
	Propose(ctx context.Context, schema *Schema, prompt string) (map[string]interface{}, error)
}

const plannerSystemPrompt = `You are a data viz planner for a Mongo-backed dashboard.
You must return STRICT JSON **only** (no markdown, no prose) with keys:
{
  "dataset": "<kpi_totals|kpi_expensesByCategory|kpi_monthly|kpi_daily|products|transactions>",
  "chart_type": "<bar|line|scatter|pie|histogram|box>",
  "x": "<field>",
  "y": "<field or null>",
  "filter": { "<field>": ["val1","val2"] } or null,
  "calculation": "newCol = <expr_using_existing_columns>" or null,
  "reason": "short sentence"
}

Rules:
- For KPI totals use dataset kpi_totals with x=metric, y=value (bar/pie).
- For KPI monthly use dataset kpi_monthly (x=month, y in revenue|expenses|operationalExpenses|nonOperationalExpenses).
- For KPI daily use dataset kpi_daily (x=date, y in revenue|expenses).
- For expenses by category use kpi_expensesByCategory (x=category, y=value).
- For products: price, expense, margin are available; scatter price vs expense is common.
- For transactions: buyer, amount, productCount, createdAt available; histogram of amount is common.
- If unsure, pick a simple valid plan.
Return JSON only.`

// OpenAIOracleConfig configures the OpenAI-backed oracle.
type OpenAIOracleConfig struct {
	APIKey  string        // Required: OpenAI API key
	BaseURL string        // Default: https://api.openai.com
	Model   string        // Default: gpt-4o-mini
	Timeout time.Duration // Default: 60s
}

// OpenAIOracle implements Oracle against the OpenAI chat completions API.
type OpenAIOracle struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAIOracle creates a new OpenAI-backed oracle.
func NewOpenAIOracle(config OpenAIOracleConfig) *OpenAIOracle {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := config.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIOracle{
		apiKey:  config.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Propose sends the schema and the user prompt to the completion API and
// parses the strict-JSON candidate plan out of the reply.
func (o *OpenAIOracle) Propose(ctx context.Context, schema *Schema, prompt string) (map[string]interface{}, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize schema: %w", err)
	}
	user := fmt.Sprintf("User prompt: %s\nSchema: %s\nReturn JSON only.", prompt, schemaJSON)

	body, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: plannerSystemPrompt},
			{Role: "user", Content: user},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read oracle response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode oracle response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("oracle error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("oracle returned no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	log.Printf("Oracle raw: %s", content)

	var candidate map[string]interface{}
	if err := json.Unmarshal([]byte(cleanJSON(content)), &candidate); err != nil {
		return nil, fmt.Errorf("oracle returned non-JSON plan: %w", err)
	}
	return candidate, nil
}

// cleanJSON strips surrounding code fences and extracts the outermost
// {...} block from a completion reply.
func cleanJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
		// drop a language tag like "json"
		if idx := strings.IndexAny(raw, "\n{"); idx > 0 {
			raw = raw[idx:]
		}
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

// FallbackPlan is the hardcoded safe candidate used whenever the oracle
// cannot be trusted.
func FallbackPlan() map[string]interface{} {
	return map[string]interface{}{
		"dataset":     "kpi_totals",
		"chart_type":  "bar",
		"x":           "metric",
		"y":           "value",
		"filter":      nil,
		"calculation": nil,
		"reason":      "Fallback plan",
	}
}

// ProposePlan asks the oracle for a candidate plan and normalizes it. Any
// oracle failure degrades to the fallback plan; this function never fails.
func ProposePlan(ctx context.Context, oracle Oracle, prompt string) models.ChartPlan {
	schema := BuildSchema()
	candidate, err := oracle.Propose(ctx, schema, prompt)
	if err != nil {
		log.Printf("Oracle planning failed, using fallback: %v", err)
		candidate = FallbackPlan()
	}
	return NormalizePlan(candidate)
}
