// Package openai implements the extraction engine against the OpenAI
// chat-completions API over plain HTTP.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"payroll-bot/internal/extract"
	"payroll-bot/internal/util"
)

const endpoint = "https://api.openai.com/v1/chat/completions"

type Engine struct {
	APIKey string
	Model  string
	httpc  *http.Client
}

func New(key, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(key),
		Model:  strings.TrimSpace(model),
		httpc:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }
func (e *Engine) SetModel(m string) {
	if m = strings.TrimSpace(m); m != "" {
		e.Model = m
	}
}

func (e *Engine) Extract(ctx context.Context, image []byte, opt extract.Options) (extract.Result, error) {
	if e.APIKey == "" {
		return extract.Result{}, eris.New("OPENAI_API_KEY is empty")
	}
	model := e.Model
	if opt.ModelOverride != "" {
		model = opt.ModelOverride
	}

	dataURL := "data:" + util.SniffMimeHTTP(image) + ";base64," +
		base64.StdEncoding.EncodeToString(image)

	body := map[string]any{
		"model": model,
		"messages": []any{
			map[string]any{"role": "system", "content": extract.SystemPrompt(opt)},
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": "Extract the schedule. Answer with the JSON object only."},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": dataURL, "detail": "high"}},
				},
			},
		},
		"temperature":     0,
		"response_format": map[string]any{"type": "json_object"},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return extract.Result{}, eris.Wrap(err, "openai: new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return extract.Result{}, eris.Wrap(err, "openai: call")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return extract.Result{}, eris.Errorf("openai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return extract.Result{}, eris.Wrap(err, "openai: decode response")
	}
	if len(raw.Choices) == 0 {
		return extract.Result{}, eris.Wrap(extract.ErrNoEntries, "openai: empty response")
	}
	return extract.ParseModelJSON(raw.Choices[0].Message.Content)
}
