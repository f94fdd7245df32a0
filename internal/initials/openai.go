package initials

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultImagesURL = "https://api.openai.com/v1/images/generations"

// OpenAIGenerator renders illuminated initials with the OpenAI image API.
type OpenAIGenerator struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewOpenAIGenerator creates a generator authenticated with apiKey.
func NewOpenAIGenerator(apiKey string) *OpenAIGenerator {
	return &OpenAIGenerator{
		apiKey:  apiKey,
		baseURL: defaultImagesURL,
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint. Used in tests.
func (g *OpenAIGenerator) WithBaseURL(url string) *OpenAIGenerator {
	g.baseURL = url
	return g
}

// Generate requests one 1024x1024 image for letter and returns it as a PNG
// data URL.
func (g *OpenAIGenerator) Generate(ctx context.Context, letter rune) (string, error) {
	prompt := fmt.Sprintf(
		"A black background with white ink drawing featuring an illuminated initial '%c' "+
			"in the Italian Futurist style, with geometric and abstract forms, swirling lines, "+
			"and dynamic composition reminiscent of early 20th-century avant-garde art. "+
			"The background should be pure black with white forms and lines.",
		letter)

	payload, err := json.Marshal(map[string]any{
		"model":  "gpt-image-1",
		"prompt": prompt,
		"n":      1,
		"size":   "1024x1024",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("image API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read image API response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image API status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var parsed struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode image API response: %w", err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return "", fmt.Errorf("image API response carries no image data")
	}
	return "data:image/png;base64," + parsed.Data[0].B64JSON, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
