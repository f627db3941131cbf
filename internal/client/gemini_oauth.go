package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"leo/internal/agent"
	"leo/internal/auth"
	"leo/internal/config"
	"leo/internal/logging"
)

// Code Assist API endpoint. OAuth users go through this surface
// instead of the public API-key endpoint.
const (
	codeAssistEndpoint = "https://cloudcode-pa.googleapis.com"
	codeAssistVersion  = "v1internal"

	onboardPollInterval = 5 * time.Second
	onboardPollAttempts = 24

	freeTierID = "free-tier"
)

// clientMetadata identifies the client to the Code Assist API.
var clientMetadata = map[string]string{
	"ideType":    "IDE_UNSPECIFIED",
	"platform":   "PLATFORM_UNSPECIFIED",
	"pluginType": "GEMINI",
}

// GeminiOAuthClient talks to Gemini through the Code Assist API using
// browser-login OAuth credentials instead of an API key.
type GeminiOAuthClient struct {
	provider   *auth.Provider
	httpClient *http.Client
	endpoint   string

	model        string
	temperature  float32
	maxTokens    int32
	maxRetries   int
	retryDelay   time.Duration
	pollInterval time.Duration

	// sessionID groups all requests of one process run.
	sessionID string

	mu        sync.Mutex
	projectID string
}

// NewGeminiOAuthClient creates an OAuth-backed client.
func NewGeminiOAuthClient(cfg *config.Config, provider *auth.Provider) *GeminiOAuthClient {
	maxRetries := cfg.API.Retry.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	retryDelay := cfg.API.Retry.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	timeout := cfg.API.Retry.HTTPTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	temperature := cfg.Model.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	maxTokens := cfg.Model.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	return &GeminiOAuthClient{
		provider:     provider,
		httpClient:   &http.Client{Timeout: timeout},
		endpoint:     codeAssistEndpoint,
		model:        cfg.Model.Name,
		temperature:  temperature,
		maxTokens:    maxTokens,
		maxRetries:   maxRetries,
		retryDelay:   retryDelay,
		pollInterval: onboardPollInterval,
		sessionID:    uuid.NewString(),
	}
}

// DefaultModel returns the configured model name.
func (c *GeminiOAuthClient) DefaultModel() string {
	return c.model
}

// Code Assist wire format. The inner request mirrors the public
// generateContent shape, wrapped in a project-scoped envelope.

type caEnvelope struct {
	Model        string    `json:"model"`
	Project      string    `json:"project"`
	UserPromptID string    `json:"user_prompt_id"`
	Request      caRequest `json:"request"`
}

type caRequest struct {
	Contents          []caContent  `json:"contents"`
	SystemInstruction *caContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  caGenConfig  `json:"generationConfig"`
	SessionID         string       `json:"session_id,omitempty"`
	Tools             []caToolList `json:"tools,omitempty"`
}

type caContent struct {
	Role  string   `json:"role,omitempty"`
	Parts []caPart `json:"parts"`
}

type caPart struct {
	Text             string              `json:"text,omitempty"`
	FunctionCall     *caFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *caFunctionResponse `json:"functionResponse,omitempty"`
}

type caFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type caFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type caGenConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int32   `json:"maxOutputTokens"`
}

type caToolList struct {
	FunctionDeclarations []*genai.FunctionDeclaration `json:"functionDeclarations"`
}

type caResponse struct {
	Response struct {
		Candidates []struct {
			Content struct {
				Parts []caPart `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		UsageMetadata *struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
			TotalTokenCount      int `json:"totalTokenCount"`
		} `json:"usageMetadata"`
	} `json:"response"`
}

// Chat sends one completion request through the Code Assist API.
func (c *GeminiOAuthClient) Chat(ctx context.Context, messages []agent.Message, tools []*genai.FunctionDeclaration) (*agent.Response, error) {
	token, err := c.provider.GetValidToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuth, err)
	}

	project, err := c.resolveProject(ctx, token)
	if err != nil {
		return nil, err
	}

	envelope := c.buildEnvelope(messages, tools, project)

	body, err := retryWithBackoff(ctx, c.maxRetries, c.retryDelay, func() ([]byte, error) {
		return c.call(ctx, token, "generateContent", envelope)
	})
	if err != nil {
		return nil, err
	}

	return parseCodeAssistResponse(body)
}

func (c *GeminiOAuthClient) buildEnvelope(messages []agent.Message, tools []*genai.FunctionDeclaration, project string) caEnvelope {
	system, rest := splitSystem(messages)

	req := caRequest{
		Contents: toCodeAssistContents(rest),
		GenerationConfig: caGenConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxTokens,
		},
		SessionID: c.sessionID,
	}
	if system != "" {
		req.SystemInstruction = &caContent{Parts: []caPart{{Text: system}}}
	}
	if len(tools) > 0 {
		req.Tools = []caToolList{{FunctionDeclarations: tools}}
	}

	return caEnvelope{
		Model:        c.model,
		Project:      project,
		UserPromptID: uuid.NewString(),
		Request:      req,
	}
}

// toCodeAssistContents maps conversation messages to the wire format.
// Tool results ride as role "function" with a functionResponse part
// named by the call id they answer.
func toCodeAssistContents(messages []agent.Message) []caContent {
	contents := make([]caContent, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case agent.RoleUser:
			contents = append(contents, caContent{
				Role:  "user",
				Parts: []caPart{{Text: m.Content}},
			})

		case agent.RoleAssistant:
			var parts []caPart
			if m.Content != "" {
				parts = append(parts, caPart{Text: m.Content})
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, caPart{FunctionCall: &caFunctionCall{
					Name: call.Name,
					Args: call.Args,
				}})
			}
			if len(parts) == 0 {
				parts = append(parts, caPart{Text: " "})
			}
			contents = append(contents, caContent{Role: "model", Parts: parts})

		case agent.RoleTool:
			name := m.ToolCallID
			if name == "" {
				name = "unknown"
			}
			contents = append(contents, caContent{
				Role: "function",
				Parts: []caPart{{FunctionResponse: &caFunctionResponse{
					Name:     name,
					Response: map[string]any{"result": m.Content},
				}}},
			})
		}
	}
	return contents
}

func parseCodeAssistResponse(body []byte) (*agent.Response, error) {
	var resp caResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Response.Candidates) == 0 {
		return nil, fmt.Errorf("response contains no candidates")
	}
	candidate := resp.Response.Candidates[0]

	out := &agent.Response{FinishReason: "stop"}
	if candidate.FinishReason != "" {
		out.FinishReason = strings.ToLower(candidate.FinishReason)
	}

	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, agent.ToolCallRequest{
				ID:   fmt.Sprintf("tc_%d", len(out.ToolCalls)),
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}

	if meta := resp.Response.UsageMetadata; meta != nil {
		out.Usage = &agent.Usage{
			PromptTokens:     meta.PromptTokenCount,
			CompletionTokens: meta.CandidatesTokenCount,
			TotalTokens:      meta.TotalTokenCount,
		}
	}

	return out, nil
}

// call POSTs one Code Assist method and returns the raw body.
func (c *GeminiOAuthClient) call(ctx context.Context, token, method string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:%s", c.endpoint, codeAssistVersion, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// Successful bodies pass through untouched. Model output may
	// legitimately talk about quota errors, so the RESOURCE_EXHAUSTED
	// sniff below only ever applies to error bodies.
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: token rejected, run `leo auth login`", ErrAuth)
	case resp.StatusCode == http.StatusTooManyRequests ||
		strings.Contains(string(body), "RESOURCE_EXHAUSTED"):
		return nil, &APIError{StatusCode: resp.StatusCode, Message: "rate limited"}
	default:
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
}

// Project discovery. Resolution order: cached value, environment,
// loadCodeAssist, then free-tier onboarding as a last resort.

type caLoadRequest struct {
	Metadata map[string]string `json:"metadata"`
}

type caLoadResponse struct {
	CurrentTier             json.RawMessage `json:"currentTier,omitempty"`
	CloudAICompanionProject json.RawMessage `json:"cloudaicompanionProject,omitempty"`
}

type caOnboardRequest struct {
	TierID   string            `json:"tierId"`
	Metadata map[string]string `json:"metadata"`
}

// caOperation is the long-running operation shape returned by
// onboardUser and by polling the operation's name.
type caOperation struct {
	Name     string `json:"name"`
	Done     bool   `json:"done"`
	Response struct {
		CloudAICompanionProject struct {
			ID string `json:"id"`
		} `json:"cloudaicompanionProject"`
	} `json:"response"`
}

func (c *GeminiOAuthClient) resolveProject(ctx context.Context, token string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.projectID != "" {
		return c.projectID, nil
	}

	if creds, err := c.provider.Credentials(); err == nil && creds != nil && creds.ProjectID != "" {
		c.projectID = creds.ProjectID
		return c.projectID, nil
	}

	for _, env := range []string{"GOOGLE_CLOUD_PROJECT", "GOOGLE_CLOUD_PROJECT_ID"} {
		if v := os.Getenv(env); v != "" {
			c.projectID = v
			return v, nil
		}
	}

	project, err := c.discoverProject(ctx, token)
	if err != nil {
		return "", err
	}

	c.projectID = project
	if err := c.provider.SetProjectID(project); err != nil {
		logging.Warn("failed to cache project id", "error", err)
	}
	return project, nil
}

// discoverProject asks the Code Assist API which project this account
// uses, onboarding the account onto the free tier when it has none.
// A failing loadCodeAssist falls through to onboarding rather than
// aborting discovery.
func (c *GeminiOAuthClient) discoverProject(ctx context.Context, token string) (string, error) {
	body, err := c.call(ctx, token, "loadCodeAssist", caLoadRequest{Metadata: clientMetadata})
	if err != nil {
		logging.Warn("loadCodeAssist failed, attempting onboard", "error", err)
		return c.onboardFreeTier(ctx, token)
	}

	var load caLoadResponse
	if err := json.Unmarshal(body, &load); err != nil {
		return "", fmt.Errorf("failed to parse loadCodeAssist response: %w", err)
	}

	if len(load.CurrentTier) > 0 {
		if project := decodeProject(load.CloudAICompanionProject); project != "" {
			logging.Info("resolved cloud project", "project", project)
			return project, nil
		}
	}

	return c.onboardFreeTier(ctx, token)
}

// decodeProject handles both wire shapes of cloudaicompanionProject:
// a bare string or an object with an id field.
func decodeProject(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.ID
	}
	return ""
}

// onboardFreeTier enrolls the account on the free tier. When the API
// answers with an unfinished long-running operation, its handle is
// polled until a project is assigned.
func (c *GeminiOAuthClient) onboardFreeTier(ctx context.Context, token string) (string, error) {
	logging.Info("onboarding account onto free tier")

	body, err := c.call(ctx, token, "onboardUser", caOnboardRequest{TierID: freeTierID, Metadata: clientMetadata})
	if err != nil {
		return "", fmt.Errorf("onboarding failed: %w", err)
	}

	var op caOperation
	if err := json.Unmarshal(body, &op); err != nil {
		return "", fmt.Errorf("failed to parse onboardUser response: %w", err)
	}

	if !op.Done && op.Name != "" {
		return c.pollOperation(ctx, token, op.Name)
	}

	if project := op.Response.CloudAICompanionProject.ID; project != "" {
		logging.Info("onboarding complete", "project", project)
		return project, nil
	}
	return "", fmt.Errorf("onboarding returned no project; set GOOGLE_CLOUD_PROJECT or GOOGLE_CLOUD_PROJECT_ID")
}

// pollOperation waits for an onboarding operation to finish. Failed
// polls are skipped rather than fatal; only the attempt budget ends
// the wait.
func (c *GeminiOAuthClient) pollOperation(ctx context.Context, token, name string) (string, error) {
	for attempt := 0; attempt < onboardPollAttempts; attempt++ {
		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}

		body, err := c.getOperation(ctx, token, name)
		if err != nil {
			logging.Warn("operation poll failed", "operation", name, "error", err)
			continue
		}

		var op caOperation
		if err := json.Unmarshal(body, &op); err != nil {
			return "", fmt.Errorf("failed to parse operation %s: %w", name, err)
		}

		if op.Done {
			if project := op.Response.CloudAICompanionProject.ID; project != "" {
				logging.Info("onboarding complete", "project", project)
				return project, nil
			}
		}
	}

	return "", fmt.Errorf("onboarding did not complete after %d attempts", onboardPollAttempts)
}

// getOperation fetches a long-running operation by its resource name.
func (c *GeminiOAuthClient) getOperation(ctx context.Context, token, name string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s", c.endpoint, codeAssistVersion, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}
