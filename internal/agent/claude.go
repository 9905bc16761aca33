package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/supplytrace/esg-cli/pkg/anthropic"
)

const systemPrompt = `You are an analyst who searches the web for a company's sustainability and ESG information.

Use the web search tool to find relevant data sources and links, then analyze the content of pages of interest.

BE AS CONCISE AS POSSIBLE.

Reply with ONLY a single JSON object matching the schema the task specifies. No prose outside the JSON.`

// maxWebSearches bounds the agent's tool use per question.
const maxWebSearches = 8

// Config tunes the Claude-backed agent.
type Config struct {
	Model          string
	MaxTokens      int64
	Timeout        time.Duration
	MaxRetries     int
	RequestsPerSec float64
}

// ClaudeAgent implements Agent over the Anthropic messages API with the
// server-side web search tool.
type ClaudeAgent struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
}

// NewClaude creates a ClaudeAgent. RequestsPerSec <= 0 disables rate limiting.
func NewClaude(client anthropic.Client, cfg Config) *ClaudeAgent {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	return &ClaudeAgent{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Run executes one research question. The prompt must already describe the
// expected JSON schema; out receives the decoded terminal result.
func (a *ClaudeAgent) Run(ctx context.Context, prompt string, out any) error {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	var resp *anthropic.MessageResponse
	var err error
	for attempt := 0; ; attempt++ {
		if lErr := a.limiter.Wait(ctx); lErr != nil {
			return classify(lErr)
		}

		resp, err = a.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:         a.cfg.Model,
			MaxTokens:     a.cfg.MaxTokens,
			System:        systemPrompt,
			Messages:      []anthropic.Message{{Role: "user", Content: prompt}},
			WebSearchUses: maxWebSearches,
		})
		if err == nil {
			break
		}
		if attempt >= a.cfg.MaxRetries || !isTransient(err) {
			return classify(err)
		}
		zap.L().Warn("agent: transient failure, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	resp.Usage.LogCost(a.cfg.Model, firstLine(prompt))

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return NewError(KindSchema, eris.New("empty response"))
	}

	raw, ok := extractJSON(text)
	if !ok {
		return NewError(KindSchema, eris.Errorf("no JSON object in response: %.120s", text))
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return NewError(KindSchema, eris.Wrap(err, "decode result"))
	}
	return nil
}

// classify maps a transport error to a typed agent error.
func classify(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(KindTimeout, err)
	}
	return NewError(KindUpstream, err)
}

// isTransient reports whether the error is safe to retry: connection-level
// failures and transient HTTP statuses surfaced by the SDK. Deadline
// expiry is never retried; the budget is already spent.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"429", "500", "502", "503", "529",
		"overloaded",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// extractJSON returns the outermost JSON object embedded in text. Models
// occasionally wrap the object in prose despite instructions.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
