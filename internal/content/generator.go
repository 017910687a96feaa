package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"

	"stekfinder-autopilot/internal/logger"
	"stekfinder-autopilot/models"
)

const (
	defaultModel = "gemini-2.0-flash"

	// Pause between weekly generation calls to respect upstream rate limits.
	weekCallDelay = 1 * time.Second

	// Posts go out at 09:00 local time.
	publishHour = 9
)

// Generator produces post drafts from the Gemini API. A single Generate call
// never retries; batch callers decide what to do with a failed unit.
type Generator struct {
	client  *genai.Client
	model   string
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter

	// call performs one model invocation and returns the raw response text.
	// Swapped out in tests.
	call func(ctx context.Context, system, user string) (string, error)

	now   func() time.Time
	sleep func(time.Duration)
}

// NewGenerator creates a Gemini-backed generator. An empty model selects the
// default.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	g := &Generator{
		client: client,
		model:  model,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "GeminiContent",
			MaxRequests: 5,
			Interval:    10 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
		// Gemini free tier allows 10 RPM; stay under it with headroom.
		limiter: rate.NewLimiter(rate.Limit(9.0/60.0), 1),
		now:     time.Now,
		sleep:   time.Sleep,
	}
	g.call = g.callGemini
	return g, nil
}

// Close releases the underlying API client.
func (g *Generator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Generate produces one post draft for the given content type. customPrompt,
// when non-empty, pins the topic; otherwise the model picks one appropriate
// to the type and season. Any transport failure, refusal, or malformed
// response is returned as an error without retrying.
func (g *Generator) Generate(ctx context.Context, typeKey, customPrompt string) (*models.PostDraft, error) {
	ct, ok := TypeByKey(typeKey)
	if !ok {
		return nil, fmt.Errorf("unknown content type: %s", typeKey)
	}

	tracer := otel.Tracer("content-generator")
	ctx, span := tracer.Start(ctx, "content.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("content.type", typeKey),
		attribute.Bool("content.custom_prompt", customPrompt != ""),
	)

	raw, err := g.call(ctx, SystemPrompt(g.now()), UserPrompt(ct, customPrompt))
	if err != nil {
		span.SetAttributes(attribute.Bool("content.error", true))
		return nil, fmt.Errorf("generate %s: %w", typeKey, err)
	}

	draft, err := parseDraft(raw, typeKey)
	if err != nil {
		span.SetAttributes(attribute.Bool("content.malformed", true))
		return nil, fmt.Errorf("generate %s: %w", typeKey, err)
	}
	return draft, nil
}

// GenerateWeek produces up to seven drafts for offsets 0..6 from today,
// cycling through the catalog in order. Failed generations are logged and
// skipped so the batch keeps going; the result may hold fewer than seven
// drafts.
func (g *Generator) GenerateWeek(ctx context.Context) []models.PostDraft {
	drafts := make([]models.PostDraft, 0, 7)

	for i := 0; i < 7; i++ {
		typeKey := Catalog[i%len(Catalog)].Key

		draft, err := g.Generate(ctx, typeKey, "")
		if err != nil {
			logger.Error("week generation unit failed", "content_type", typeKey, "offset", i, "error", err)
		} else {
			draft.Platform = models.PlatformBoth
			draft.ScheduledFor = WeekSlot(g.now(), i)
			drafts = append(drafts, *draft)
		}

		if i < 6 {
			g.sleep(weekCallDelay)
		}
	}

	return drafts
}

// WeekSlot returns today+offset days at 09:00 local time.
func WeekSlot(now time.Time, offset int) time.Time {
	day := now.AddDate(0, 0, offset)
	return time.Date(day.Year(), day.Month(), day.Day(), publishHour, 0, 0, 0, now.Location())
}

func (g *Generator) callGemini(ctx context.Context, system, user string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		model := g.client.GenerativeModel(g.model)
		model.SetTemperature(0.9)
		model.SetMaxOutputTokens(1024)
		model.ResponseMIMEType = "application/json"
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

		resp, err := model.GenerateContent(ctx, genai.Text(user))
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return "", err
	}

	resp := result.(*genai.GenerateContentResponse)
	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("empty model response")
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}

// draftPayload is the JSON contract the model must honor.
type draftPayload struct {
	Text        string   `json:"text"`
	Hashtags    []string `json:"hashtags"`
	ImagePrompt string   `json:"image_prompt"`
	Hook        string   `json:"hook"`
}

// parseDraft decodes the model output. Code fences around the JSON are
// stripped first; anything that still fails to decode, or that lacks post
// text, counts as a generation failure.
func parseDraft(raw, typeKey string) (*models.PostDraft, error) {
	cleaned := stripCodeFence(raw)

	var payload draftPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("malformed model response: %w", err)
	}
	if strings.TrimSpace(payload.Text) == "" {
		return nil, fmt.Errorf("model response missing post text")
	}

	hook := payload.Hook
	if hook == "" {
		hook = strings.SplitN(payload.Text, "\n", 2)[0]
	}
	hashtags := payload.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}

	return &models.PostDraft{
		ContentType: typeKey,
		TextContent: payload.Text,
		Hashtags:    hashtags,
		ImagePrompt: payload.ImagePrompt,
		Hook:        hook,
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
