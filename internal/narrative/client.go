// Package narrative calls the hosted vision-language model that turns
// a normalized image into a structured diagnostic narrative.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "go-imaging-report/internal/errors"
	"go-imaging-report/internal/logger"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// systemPrompt fixes the report structure the model must produce.
const systemPrompt = "You are a medical imaging AI assistant. Generate a clear, evidence-based report using headings:\n\n" +
	"## Image Characteristics (Certainty: in percentage)\n- Modality:\n- Quality:\n- Findings:\n\n" +
	"## Pattern Recognition (Certainty: in percentage)\n- Key patterns:\n\n" +
	"## Clinical Considerations (Certainty: in percentage)\n- Next steps:\n- Differentials:\n\n" +
	"## Summary\n- Bullet points of final insights.\n\n" +
	"Use plain language, incorporate patient demographics, and avoid excessive jargon. " +
	"Do NOT include disclaimers about inability to analyze images - provide direct analysis. " +
	"Proceed with detailed interpretation of the provided medical image."

// Generator produces a free-text analysis for an encoded image plus a
// contextual prompt (demographics, preliminary ensemble diagnosis).
type Generator interface {
	Generate(ctx context.Context, dataURL string, contextPrompt string) (string, error)
}

// Client is an OpenAI chat-completions client using the vision message
// format (text part + image_url part with high detail).
type Client struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

func NewClient(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *Client) Generate(ctx context.Context, dataURL string, contextPrompt string) (string, error) {
	userText := "Analyze this medical image."
	if contextPrompt != "" {
		userText += " " + contextPrompt
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: userText},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL, Detail: "high"}},
			}},
		},
		MaxTokens:   2500,
		Temperature: 0.3,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode narrative request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewInternalError("failed to build narrative request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", apperrors.NewTimeoutError("narrative generation timed out", err)
		}
		return "", apperrors.NewNetworkError("narrative model unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewNetworkError("failed to read narrative response", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", apperrors.NewInternalError("malformed narrative response", err)
	}
	if resp.StatusCode != http.StatusOK || parsed.Error != nil {
		msg := fmt.Sprintf("narrative model returned status %d", resp.StatusCode)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", apperrors.NewNetworkError(msg, nil)
	}
	if len(parsed.Choices) == 0 {
		return "", apperrors.NewInternalError("narrative response carries no choices", nil)
	}

	logger.WithStage("narrative").WithFields(map[string]interface{}{
		"model":       c.model,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("narrative generated")
	return parsed.Choices[0].Message.Content, nil
}
