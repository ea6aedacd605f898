package openai

import (
	"context"
	"errors"
	"strings"
)

type imagesGenerationRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n,omitempty"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"` // b64_json|url
}

type imagesGenerationResponse struct {
	Data []struct {
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

// GenerateImageURL asks for a single image and returns the provider-hosted
// URL. The URL is short lived; callers copy the bytes elsewhere.
func (c *client) GenerateImageURL(ctx context.Context, prompt string, opts ImageOptions) (string, error) {
	const op = "image"
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", &GenerationError{Kind: ErrorKindRequest, Op: op, Err: errors.New("image prompt required")}
	}

	req := imagesGenerationRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		N:              1,
		Size:           strings.TrimSpace(opts.Size),
		Quality:        strings.TrimSpace(opts.Quality),
		ResponseFormat: "url",
	}

	var resp imagesGenerationResponse
	if err := c.do(ctx, "POST", "/v1/images/generations", req, &resp); err != nil {
		return "", classify(op, err)
	}
	if len(resp.Data) == 0 {
		return "", responseError(op, errors.New("no image returned"))
	}
	item := resp.Data[0]
	url := strings.TrimSpace(item.URL)
	if url == "" {
		return "", responseError(op, errors.New("OpenAI image URL is blank"))
	}
	if rp := strings.TrimSpace(item.RevisedPrompt); rp != "" {
		c.log.Debug("Image prompt revised by provider", "revised_prompt", rp)
	}
	return url, nil
}
