// Package gemini wraps the external generative text service. It decides
// locally whether a query is simple enough for rule handling, composes the
// system prompt, and normalizes every failure into a safe fallback reply.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/config"
	"github.com/winbeat/assist/internal/observability"
	"github.com/winbeat/assist/model"
)

// keyPlaceholder is the credential value deployment templates ship with.
const keyPlaceholder = "your_api_key_here"

// fallbackMessage is returned whenever the external service fails. Callers
// treat Success=false as "try rule-based instead", never as a hard error.
const fallbackMessage = "I'm having trouble reaching my AI service right now. " +
	"I can still help with direct commands like 'go to clients', 'search for a name', or 'how many registrations'."

// simpleActionPhrases marks queries the rule tables handle well. A query
// containing any of these is kept local instead of being sent out. This
// list deliberately differs from the interpreter's own triggers so the
// adapter degrades gracefully when the two drift.
var simpleActionPhrases = []string{
	"go to",
	"navigate to",
	"open",
	"search for",
	"find",
	"count",
	"how many",
	"total",
	"check invalid abn",
	"check wrong abn",
	"expiring registrations",
	"expire soon",
}

// Reply is the adapter's normalized response.
type Reply struct {
	Message string `json:"message"`
	Source  string `json:"source"`
	Success bool   `json:"success"`
}

// Status describes the adapter for the status endpoint. The credential is
// masked to its last four characters.
type Status struct {
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
	Credential string `json:"credential,omitempty"`
}

// Adapter calls the generative text service over HTTP.
type Adapter struct {
	cfg     config.GeminiConfig
	http    *http.Client
	logger  *zap.Logger
	metrics *observability.Metrics
}

// New creates an adapter from configuration. metrics may be nil in tests.
func New(cfg config.GeminiConfig, logger *zap.Logger, metrics *observability.Metrics) *Adapter {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Adapter{
		cfg:     cfg,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: metrics,
	}
}

// IsConfigured reports whether a usable credential is present.
func (a *Adapter) IsConfigured() bool {
	return a.cfg.APIKey != "" && a.cfg.APIKey != keyPlaceholder
}

// ShouldGenerate reports whether the query is open-ended enough to send to
// the external service. Queries containing a simple-action phrase stay with
// the rule tables.
func (a *Adapter) ShouldGenerate(query string) bool {
	lower := strings.ToLower(query)
	for _, phrase := range simpleActionPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	return true
}

// Generate sends the query with user and page context to the external
// service. Failures never surface as errors; they become a fallback Reply.
func (a *Adapter) Generate(ctx context.Context, query string, user *model.User, pageCtx model.PageContext) Reply {
	prompt := buildPrompt(query, user, pageCtx, nil)
	return a.call(ctx, prompt, model.SourceGemini)
}

// GenerateContextual is Generate with structured data summaries embedded in
// the prompt, used by the analysis handlers to narrate their findings.
func (a *Adapter) GenerateContextual(ctx context.Context, query string, user *model.User, pageCtx model.PageContext, contextData map[string]any) Reply {
	prompt := buildPrompt(query, user, pageCtx, contextData)
	return a.call(ctx, prompt, model.SourceGeminiContextual)
}

// Status returns the adapter configuration for the status endpoint.
func (a *Adapter) Status() Status {
	s := Status{
		Configured: a.IsConfigured(),
		Model:      a.cfg.Model,
	}
	if s.Configured {
		s.Credential = maskCredential(a.cfg.APIKey)
	}
	return s
}

// HealthCheck reports whether the adapter is usable. It does not make an
// outbound request; the service is metered.
func (a *Adapter) HealthCheck(context.Context) error {
	if !a.IsConfigured() {
		return errors.New("no generative service credential configured")
	}
	return nil
}

// Request/response shapes of the generateContent endpoint, reduced to the
// fields this adapter reads and writes.

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (a *Adapter) call(ctx context.Context, prompt, source string) Reply {
	if !a.IsConfigured() {
		return fallback()
	}

	ctx, span := observability.StartSpan(ctx, "gemini.generate",
		attribute.String("gemini.model", a.cfg.Model))
	var spanErr error
	defer func() { observability.EndSpanWithError(span, spanErr) }()

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     a.cfg.Temperature,
			TopP:            a.cfg.TopP,
			TopK:            a.cfg.TopK,
			MaxOutputTokens: a.cfg.MaxOutputTokens,
		},
	})
	if err != nil {
		return fallback()
	}

	u := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimSuffix(a.cfg.Endpoint, "/"), a.cfg.Model, a.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fallback()
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		spanErr = err
		a.record("error", start)
		observability.RequestLogger(ctx, a.logger).Warn("generative service request failed", zap.Error(err))
		return fallback()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		spanErr = fmt.Errorf("generative service status %d", resp.StatusCode)
		a.record(fmt.Sprintf("%d", resp.StatusCode), start)
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		observability.RequestLogger(ctx, a.logger).Warn("generative service returned error status",
			zap.Int("status", resp.StatusCode))
		return fallback()
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		spanErr = err
		a.record("decode_error", start)
		return fallback()
	}
	text := extractText(decoded)
	if text == "" {
		spanErr = errors.New("empty generation")
		a.record("empty", start)
		return fallback()
	}

	a.record("ok", start)
	return Reply{Message: text, Source: source, Success: true}
}

func (a *Adapter) record(status string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordGeminiRequest(status, time.Since(start))
	}
}

func extractText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String())
}

func fallback() Reply {
	return Reply{Message: fallbackMessage, Source: model.SourceFallback, Success: false}
}

func maskCredential(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
