package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/setforge/setforge/internal/domain"
)

const (
	openRouterAPIURL = "https://openrouter.ai/api/v1/chat/completions"

	detectSystemPrompt = `You are an expert at extracting structured workout programs from web pages, screenshots, and PDF pages. Extract every block, superset, and exercise you can identify. Return only valid JSON.`

	detectJSONContract = `Return ONLY valid JSON in this EXACT format, one item per source, in source order:
{
  "items": [
    {
      "title": "workout title",
      "workout": {
        "title": "workout title",
        "source": "where it came from",
        "blocks": [
          {
            "label": "Warm-up",
            "structure": "circuit|emom|amrap|tabata|for-time|sets|superset|rounds|warmup|cooldown|regular",
            "exercises": [
              {"name": "Back Squat", "sets": 3, "reps": 5, "rest_sec": 120, "notes": ""}
            ],
            "supersets": [
              {"exercises": [{"name": "Pull-up", "reps": 8}], "rest_between_sec": 90, "rounds": 3}
            ]
          }
        ]
      }
    }
  ]
}

For a source you cannot parse, emit {"errors": ["reason"]} for that item instead.
Use duration_sec for timed work, distance_m for distance work. Never invent exercises that are not in the source.`
)

// OpenRouterDetector implements domain.DetectionService against the
// OpenRouter chat-completions API.
type OpenRouterDetector struct {
	apiKey     string
	model      string
	httpClient *http.Client
	scenarios  *ScenarioConfig
}

// NewOpenRouterDetector creates a new detector. scenarios may be nil, which
// means live detection only.
func NewOpenRouterDetector(apiKey, model string, scenarios *ScenarioConfig) *OpenRouterDetector {
	return &OpenRouterDetector{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		scenarios:  scenarios,
	}
}

// Detect extracts one workout per source. The response slice matches sources
// positionally. When a non-live scenario is active, registered fixtures are
// returned instead of calling the provider.
func (d *OpenRouterDetector) Detect(ctx context.Context, profileID string, kind domain.DetectSourceKind, sources []string) ([]domain.DetectedItem, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	if d.scenarios != nil {
		if fixtures, ok := d.scenarios.Fixtures(); ok {
			return fitToSources(fixtures, len(sources)), nil
		}
	}

	content := d.buildContent(kind, sources)
	requestBody := map[string]interface{}{
		"model": d.model,
		"messages": []map[string]interface{}{
			{"role": "system", "content": detectSystemPrompt},
			{"role": "user", "content": content},
		},
		"temperature": 0.1,
	}

	payload, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openRouterAPIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", "SetForge Importer")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openrouter api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResponse.Error != nil {
		return nil, fmt.Errorf("openrouter error: %s (code: %d)", apiResponse.Error.Message, apiResponse.Error.Code)
	}
	if len(apiResponse.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI model")
	}

	items, err := parseDetectedItems(apiResponse.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	if kind == domain.DetectURLs {
		for i := range items {
			if items[i].SourceIcon == "" && i < len(sources) {
				items[i].SourceIcon = faviconURL(sources[i])
			}
		}
	}
	return fitToSources(items, len(sources)), nil
}

// buildContent assembles the user message: a plain URL list, or one
// multimodal part per base64 image.
func (d *OpenRouterDetector) buildContent(kind domain.DetectSourceKind, sources []string) interface{} {
	if kind == domain.DetectURLs {
		text := "Extract the workout program from each of these pages, one result item per URL, in order:\n"
		for i, u := range sources {
			text += fmt.Sprintf("%d. %s\n", i+1, u)
		}
		return text + "\n" + detectJSONContract
	}

	parts := []map[string]interface{}{
		{
			"type": "text",
			"text": fmt.Sprintf("Extract the workout program from each of the %d attached images/pages, one result item per image, in order.\n\n%s", len(sources), detectJSONContract),
		},
	}
	for _, b64 := range sources {
		parts = append(parts, map[string]interface{}{
			"type": "image_url",
			"image_url": map[string]string{
				"url": fmt.Sprintf("data:%s;base64,%s", sniffBase64ImageType(b64), b64),
			},
		})
	}
	return parts
}

// parseDetectedItems converts the model's JSON into boundary-validated items.
func parseDetectedItems(content string) ([]domain.DetectedItem, error) {
	var wire struct {
		Items []struct {
			Errors  []string                `json:"errors,omitempty"`
			Title   string                  `json:"title,omitempty"`
			Workout *domain.WorkoutDocument `json:"workout,omitempty"`
		} `json:"items"`
	}
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		salvaged, serr := extractJSONFromText(content)
		if serr != nil {
			return nil, fmt.Errorf("failed to parse AI response as JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(salvaged), &wire); err != nil {
			return nil, fmt.Errorf("failed to parse AI response as JSON: %w", err)
		}
	}

	items := make([]domain.DetectedItem, 0, len(wire.Items))
	for _, w := range wire.Items {
		if len(w.Errors) > 0 {
			items = append(items, domain.DetectedItem{Errors: w.Errors})
			continue
		}
		if w.Workout == nil {
			items = append(items, domain.DetectedItem{Errors: []string{"model returned no workout"}})
			continue
		}
		workout := domain.Normalize(w.Workout)
		if w.Title != "" && workout.Title == domain.DefaultWorkoutTitle {
			workout.Title = w.Title
		}
		items = append(items, domain.DetectedItem{
			ParsedTitle:         workout.Title,
			ParsedBlockCount:    len(workout.Blocks),
			ParsedExerciseCount: domain.CountExercises(workout),
			Workout:             workout,
		})
	}
	return items, nil
}

// fitToSources pads or truncates items to match the request length so
// positional pairing with queue ids stays sound.
func fitToSources(items []domain.DetectedItem, n int) []domain.DetectedItem {
	out := make([]domain.DetectedItem, n)
	for i := 0; i < n; i++ {
		if i < len(items) {
			out[i] = items[i]
		} else {
			out[i] = domain.DetectedItem{Errors: []string{"no result returned for this source"}}
		}
	}
	return out
}

// extractJSONFromText attempts to find a JSON object in text that may contain
// other content, such as markdown fences.
func extractJSONFromText(text string) (string, error) {
	start := bytes.IndexByte([]byte(text), '{')
	end := bytes.LastIndexByte([]byte(text), '}')
	if start == -1 || end == -1 || start >= end {
		return "", fmt.Errorf("no JSON object found in text")
	}
	return text[start : end+1], nil
}

func faviconURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return "https://www.google.com/s2/favicons?domain=" + u.Host
}

// sniffBase64ImageType detects the MIME type from the decoded header bytes.
func sniffBase64ImageType(b64 string) string {
	src := []byte(b64[:min(len(b64), 24)])
	header := make([]byte, base64.StdEncoding.DecodedLen(len(src)))
	n, err := base64.StdEncoding.Decode(header, src)
	if err != nil && n == 0 {
		return "image/jpeg"
	}
	return detectImageType(header[:n])
}

// detectImageType detects the MIME type of an image from its header bytes
func detectImageType(data []byte) string {
	if len(data) < 4 {
		return "image/jpeg"
	}
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
		return "image/gif"
	}
	if data[0] == 0x25 && data[1] == 0x50 && data[2] == 0x44 && data[3] == 0x46 {
		return "application/pdf"
	}
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "image/jpeg"
}
