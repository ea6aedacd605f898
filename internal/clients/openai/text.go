package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type responsesInput struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type responsesRequest struct {
	Model        string           `json:"model"`
	Instructions string           `json:"instructions,omitempty"`
	Input        []responsesInput `json:"input"`
	Temperature  float64          `json:"temperature,omitempty"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text,omitempty"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

func extractRefusal(resp responsesResponse) string {
	if resp.Refusal != "" {
		return resp.Refusal
	}
	for _, item := range resp.Output {
		for _, c := range item.Content {
			if c.Type == "refusal" && c.Refusal != "" {
				return c.Refusal
			}
		}
	}
	return ""
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	const op = "text"
	if strings.TrimSpace(user) == "" {
		return "", &GenerationError{Kind: ErrorKindRequest, Op: op, Err: errors.New("user prompt required")}
	}
	if strings.TrimSpace(system) == "" {
		system = "You are a helpful assistant."
	}

	req := responsesRequest{
		Model: c.model,
		Input: []responsesInput{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", req, &resp); err != nil {
		return "", classify(op, err)
	}
	if r := extractRefusal(resp); r != "" {
		return "", responseError(op, fmt.Errorf("model refused: %s", r))
	}

	text := strings.TrimSpace(extractOutputText(resp))
	if text == "" {
		return "", responseError(op, errors.New("OpenAI response message is blank"))
	}
	c.log.Debug("Text generated", "model", c.model, "chars", len(text))
	return text, nil
}
