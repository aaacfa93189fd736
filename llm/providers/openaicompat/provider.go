// =============================================================================
// OpenAI-Compatible Transport Base
// =============================================================================
// Shared HTTP transport for every backend that speaks the OpenAI Chat
// Completions wire format. Backends like Grok, HuggingFace, DeepSeek, Mistral,
// Groq, GLM and Qwen only override what differs (name, base URL, endpoint
// path, default model, headers).
// =============================================================================

package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/jsoninference/internal/tlsutil"
	"github.com/BaSui01/jsoninference/llm"
	"github.com/BaSui01/jsoninference/llm/providers"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the configuration for an OpenAI-compatible transport.
type Config struct {
	// ProviderName is the unique identifier for this backend (e.g., "deepseek", "grok").
	ProviderName string

	// BaseURL is the base URL for the backend's API (e.g., "https://api.deepseek.com").
	BaseURL string

	// DefaultModel is the model to use when none is specified in the request.
	DefaultModel string

	// FallbackModel is used when both request and DefaultModel are empty.
	FallbackModel string

	// Timeout is the HTTP client timeout. Defaults to 30s if zero.
	Timeout time.Duration

	// EndpointPath is the chat completions endpoint path. Defaults to "/v1/chat/completions".
	EndpointPath string

	// BuildHeaders is an optional function to set custom headers on each request.
	// If nil, the default "Authorization: Bearer <apiKey>" header is used.
	BuildHeaders func(req *http.Request, apiKey string)

	// RequestHook is an optional function to modify the request body before sending.
	RequestHook func(req *llm.ChatRequest, body *providers.OpenAICompatRequest)

	// RateLimit is the allowed requests per second. Zero disables limiting.
	RateLimit float64
	Burst     int

	// Client overrides the default hardened HTTP client (mainly for tests).
	Client *http.Client
}

// Transport is the base llm.Transport for all OpenAI-compatible backends.
type Transport struct {
	Cfg     Config
	Client  *http.Client
	Logger  *zap.Logger
	limiter *rate.Limiter
}

var _ llm.Transport = (*Transport)(nil)

// New creates a new OpenAI-compatible transport with the given config.
func New(cfg Config, logger *zap.Logger) *Transport {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.Client
	if client == nil {
		client = tlsutil.SecureHTTPClient(timeout)
	}
	t := &Transport{
		Cfg:    cfg,
		Client: client,
		Logger: logger.With(zap.String("component", "openaicompat"), zap.String("provider", cfg.ProviderName)),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return t
}

// Name returns the backend name.
func (p *Transport) Name() string { return p.Cfg.ProviderName }

// buildHeaders applies headers to the HTTP request.
func (p *Transport) buildHeaders(req *http.Request, apiKey string) {
	if p.Cfg.BuildHeaders != nil {
		p.Cfg.BuildHeaders(req, apiKey)
		return
	}
	providers.BearerTokenHeaders(req, apiKey)
}

// endpoint builds the full URL for a given path.
func (p *Transport) endpoint(path string) string {
	return fmt.Sprintf("%s%s", strings.TrimRight(p.Cfg.BaseURL, "/"), path)
}

// BuildBody converts a ChatRequest into the OpenAI-compatible wire body.
func (p *Transport) BuildBody(req *llm.ChatRequest) providers.OpenAICompatRequest {
	body := providers.OpenAICompatRequest{
		Model:          providers.ChooseModel(req, p.Cfg.DefaultModel, p.Cfg.FallbackModel),
		Messages:       providers.ConvertMessagesToOpenAI(req.Messages),
		Tools:          providers.ConvertToolsToOpenAI(req.Tools),
		ToolChoice:     providers.ConvertToolChoiceToOpenAI(req.ToolChoice),
		ResponseFormat: req.ResponseFormat,
		MaxTokens:      req.MaxTokens,
		Temperature:    req.Temperature,
	}
	if p.Cfg.RequestHook != nil {
		p.Cfg.RequestHook(req, &body)
	}
	return body
}

// Completion performs a non-streaming chat completion.
func (p *Transport) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	apiKey, _ := llm.CredentialFromContext(ctx)
	body := p.BuildBody(req)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.Cfg.EndpointPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq, apiKey)

	start := time.Now()
	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return nil, providers.MapTransportError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		p.Logger.Debug("upstream error",
			zap.Int("status", resp.StatusCode),
			zap.String("model", body.Model),
			zap.Duration("duration", time.Since(start)))
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var oaResp providers.OpenAICompatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return nil, &llm.Error{
			Code: llm.ErrUpstreamError, Message: err.Error(),
			HTTPStatus: http.StatusBadGateway, Retryable: true, Provider: p.Name(), Cause: err,
		}
	}

	p.Logger.Debug("completion finished",
		zap.String("model", body.Model),
		zap.Int("choices", len(oaResp.Choices)),
		zap.Duration("duration", time.Since(start)))

	return providers.ToLLMChatResponse(oaResp, p.Name()), nil
}
