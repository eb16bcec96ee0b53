// Package gemini implements the extraction engine on the Gemini SDK.
package gemini

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"payroll-bot/internal/extract"
	"payroll-bot/internal/util"
)

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }
func (e *Engine) SetModel(m string) {
	if m = strings.TrimSpace(m); m != "" {
		e.Model = m
	}
}

func (e *Engine) Extract(ctx context.Context, image []byte, opt extract.Options) (extract.Result, error) {
	if e.APIKey == "" {
		return extract.Result{}, eris.New("GEMINI_API_KEY is empty")
	}
	model := e.Model
	if opt.ModelOverride != "" {
		model = opt.ModelOverride
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return extract.Result{}, eris.Wrap(err, "gemini: new client")
	}
	defer cl.Close()

	m := cl.GenerativeModel(model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(extract.SystemPrompt(opt))},
	}

	parts := []genai.Part{
		genai.Text("Extract the schedule. Answer with the JSON object only."),
		&genai.Blob{MIMEType: util.SniffMimeHTTP(image), Data: image},
	}

	// Transient 5xx failures get a couple of retries; everything else is
	// surfaced to the caller immediately.
	var resp *genai.GenerateContentResponse
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, lastErr = m.GenerateContent(ctx, parts...)
		if lastErr == nil {
			break
		}
		if !isTransient(lastErr) {
			return extract.Result{}, eris.Wrap(lastErr, "gemini: generate content")
		}
		zap.L().Warn("gemini transient failure, retrying",
			zap.Int("attempt", attempt), zap.Error(lastErr))
		select {
		case <-ctx.Done():
			return extract.Result{}, eris.Wrap(ctx.Err(), "gemini: cancelled")
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	if lastErr != nil {
		return extract.Result{}, eris.Wrap(lastErr, "gemini: generate content")
	}

	out := responseText(resp)
	if out == "" {
		return extract.Result{}, eris.Wrap(extract.ErrNoEntries, "gemini: empty response")
	}
	return extract.ParseModelJSON(out)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return strings.TrimSpace(b.String())
}

func isTransient(err error) bool {
	s := err.Error()
	return strings.Contains(s, "500") ||
		strings.Contains(s, "502") ||
		strings.Contains(s, "503") ||
		strings.Contains(s, "deadline exceeded") ||
		strings.Contains(s, "connection reset")
}

func ptrFloat32(v float32) *float32 { return &v }
