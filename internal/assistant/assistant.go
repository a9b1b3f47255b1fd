// Package assistant talks to an OpenAI-compatible chat completions endpoint
// on behalf of the design workspace.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/makistry/meshview/internal/config"
	"github.com/makistry/meshview/internal/credential"
	"go.uber.org/zap"
)

// Defaults for the model provider
const (
	DefaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.2
	DefaultTimeout     = 60 * time.Second
)

// MaxSuggestions caps the number of design suggestions returned
const MaxSuggestions = 4

// SystemPrompt frames every conversation
const SystemPrompt = `You are a CadQuery expert assistant integrated into a 3D design platform.
- Answer with concise, actionable steps and CadQuery code when helpful.
- Prefer CadQuery v2 idioms; cite docs where applicable.
- Proactively ask 1-2 clarifying follow-up questions if requirements are underspecified.
- Suggest next steps to refine the design or export formats (STEP, STL).
- Assume users may run code in Jupyter via display(<CadQuery object>).
- Focus on parametric modeling, constraints, and manufacturing considerations.
- When suggesting design improvements, provide 3-4 specific alternatives with trade-offs.`

// ErrMissingCredential is returned when no API key is stored
var ErrMissingCredential = errors.New("missing API key, add it in settings")

// Error is a failed provider call
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Assistant error %d: %s", e.Status, e.Body)
}

// Role of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Recorder receives request outcomes; metrics.Collector implements it
type Recorder interface {
	RecordAssistantRequest(status string, elapsed time.Duration)
}

// Options configures a Client
type Options struct {
	Endpoint    string
	Model       string
	Temperature float64
	Timeout     time.Duration
	HTTPClient  *http.Client
	Credentials credential.Provider
	Logger      *zap.Logger
	Recorder    Recorder
}

// OptionsFromConfig maps the assistant config section onto Options
func OptionsFromConfig(cfg config.AssistantConfig, creds credential.Provider) Options {
	return Options{
		Endpoint:    cfg.Endpoint,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		Credentials: creds,
	}
}

// Client sends chat requests. The credential is read from the provider on
// every call and sent only as a bearer token to the endpoint.
type Client struct {
	endpoint    string
	model       string
	temperature float64
	http        *http.Client
	creds       credential.Provider
	recorder    Recorder
	logger      *zap.Logger
}

// New creates a client. A nil credential provider defaults to an empty
// in-memory store.
func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Credentials == nil {
		opts.Credentials = credential.NewMemoryStore()
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint:    opts.Endpoint,
		model:       opts.Model,
		temperature: opts.Temperature,
		http:        hc,
		creds:       opts.Credentials,
		recorder:    opts.Recorder,
		logger:      logger.With(zap.String("component", "assistant")),
	}
}

// Credentials returns the injected credential provider
func (c *Client) Credentials() credential.Provider {
	return c.creds
}

// Chat sends the user's input after the system prompt and history and
// returns the reply text.
func (c *Client) Chat(ctx context.Context, input string, history []Message) (string, error) {
	key, err := c.apiKey(ctx)
	if err != nil {
		return "", err
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: SystemPrompt})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: input})

	return c.complete(ctx, key, messages)
}

// Suggestions asks for 3-4 improvements to the current design. A JSON array
// reply is used directly; otherwise the first non-empty lines are returned.
func (c *Client) Suggestions(ctx context.Context, design, designContext string) ([]string, error) {
	key, err := c.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Given this current CadQuery design context: %q and current design: %q, "+
		"provide 3-4 specific design improvement suggestions. Each suggestion should be a brief, "+
		"actionable improvement with a short explanation. Format as a JSON array of strings.",
		designContext, design)
	messages := []Message{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: prompt},
	}

	content, err := c.complete(ctx, key, messages)
	if err != nil {
		return nil, err
	}
	return ParseSuggestions(content), nil
}

func (c *Client) apiKey(ctx context.Context) (string, error) {
	key, err := c.creds.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return "", ErrMissingCredential
	}
	return strings.TrimSpace(key), nil
}

type chatRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, key string, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.record("transport_error", start)
		return "", fmt.Errorf("assistant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		c.record(strconv.Itoa(resp.StatusCode), start)
		c.logger.Warn("assistant call failed", zap.Int("status", resp.StatusCode))
		return "", &Error{Status: resp.StatusCode, Body: string(text)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.record("decode_error", start)
		return "", fmt.Errorf("failed to decode assistant response: %w", err)
	}
	c.record("ok", start)

	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}

func (c *Client) record(status string, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordAssistantRequest(status, time.Since(start))
	}
}

// ParseSuggestions extracts up to MaxSuggestions items from a reply. A JSON
// value that is not an array yields no suggestions.
func ParseSuggestions(content string) []string {
	trimmed := stripFence(strings.TrimSpace(content))

	var raw any
	if err := json.Unmarshal([]byte(trimmed), &raw); err == nil {
		items, ok := raw.([]any)
		if !ok {
			return []string{}
		}
		out := make([]string, 0, MaxSuggestions)
		for _, item := range items {
			if len(out) == MaxSuggestions {
				break
			}
			switch v := item.(type) {
			case string:
				out = append(out, v)
			default:
				b, _ := json.Marshal(v)
				out = append(out, string(b))
			}
		}
		return out
	}

	out := make([]string, 0, MaxSuggestions)
	for _, line := range strings.Split(content, "\n") {
		if len(out) == MaxSuggestions {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// stripFence removes a surrounding markdown code fence
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "[{") {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
