package gemini

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/agriforecast/internal/config"
	"github.com/mamadbah2/agriforecast/internal/domain/models"
)

const systemInstruction = `You are an agricultural market analyst for Indian farmers.
Reply with ONLY a JSON object, no prose and no markdown, with exactly these keys:
{
  "forecast_trend": [{"date": "YYYY-MM-DD", "expected_demand_kg": number, "expected_price_per_kg": number}],
  "glut_risk": "Low" | "Medium" | "High",
  "optimal_planting_time": "YYYY-MM-DD",
  "optimal_selling_time": "YYYY-MM-DD",
  "recommended_quantity_kg": number,
  "suggested_markets": ["2 to 3 market names"],
  "action_summary": "one sentence"
}
forecast_trend covers the next 7 days. Be brief.`

const maxSSELine = 1 << 20

// Client requests a raw forecast text from the generative model.
type Client interface {
	RequestForecast(ctx context.Context, req models.ForecastRequest) (string, error)
}

type geminiClient struct {
	httpClient     *resty.Client
	model          string
	thinkingBudget int
	timeout        time.Duration
	available      bool
}

// NewClient creates a Gemini client. Without an API key every call fails
// with models.ErrUnavailable.
func NewClient(cfg config.AIConfig) Client {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("x-goog-api-key", cfg.GeminiKey).
		SetHeader("Content-Type", "application/json")

	return &geminiClient{
		httpClient:     client,
		model:          cfg.Model,
		thinkingBudget: cfg.ThinkingBudget,
		timeout:        cfg.Timeout,
		available:      cfg.GeminiKey != "",
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ThinkingConfig   thinkingConfig `json:"thinkingConfig"`
}

type generateRequest struct {
	SystemInstruction content          `json:"systemInstruction"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateChunk struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type result struct {
	text string
	err  error
}

// RequestForecast streams the model answer and returns the concatenated text.
// The accumulation races a timer; on timeout the stream is abandoned.
func (c *geminiClient) RequestForecast(ctx context.Context, req models.ForecastRequest) (string, error) {
	if !c.available {
		return "", models.ErrUnavailable
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		text, err := c.stream(ctx, req)
		done <- result{text: text, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.text, r.err
	case <-timer.C:
		return "", fmt.Errorf("no complete response after %s: %w", c.timeout, models.ErrTimeout)
	case <-ctx.Done():
		return "", fmt.Errorf("request cancelled: %w: %w", models.ErrTransport, ctx.Err())
	}
}

func (c *geminiClient) stream(ctx context.Context, req models.ForecastRequest) (string, error) {
	body := generateRequest{
		SystemInstruction: content{Parts: []part{{Text: systemInstruction}}},
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: userPrompt(req)}},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ThinkingConfig:   thinkingConfig{ThinkingBudget: c.thinkingBudget},
		},
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		SetQueryParam("alt", "sse").
		SetDoNotParseResponse(true).
		Post(fmt.Sprintf("/v1beta/models/%s:streamGenerateContent", c.model))
	if err != nil {
		return "", fmt.Errorf("gemini api call: %w: %w", models.ErrTransport, err)
	}

	raw := resp.RawBody()
	defer raw.Close()

	if resp.StatusCode() >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(raw, 4096))
		return "", fmt.Errorf("gemini api error: status=%d, body=%s: %w", resp.StatusCode(), strings.TrimSpace(string(msg)), models.ErrTransport)
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(raw)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" || data == "[DONE]" {
			continue
		}

		var chunk generateChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", fmt.Errorf("decode stream chunk: %w: %w", models.ErrTransport, err)
		}
		for _, cand := range chunk.Candidates {
			for _, p := range cand.Content.Parts {
				sb.WriteString(p.Text)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("stream abandoned: %w", models.ErrTransport)
		}
		return "", fmt.Errorf("read stream: %w: %w", models.ErrTransport, err)
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("empty response from gemini: %w", models.ErrTransport)
	}
	return sb.String(), nil
}

func userPrompt(req models.ForecastRequest) string {
	return fmt.Sprintf("Crop: %s\nDistrict: %s\nSeason: %s\nPlanned quantity: %.0f kg", req.Crop, req.Region, req.Season, req.Quantity)
}
