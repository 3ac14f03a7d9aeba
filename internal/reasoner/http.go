package reasoner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// EndpointConfig describes one HTTP model endpoint: a base URL, an optional
// bearer credential, and the model identifier to request.
type EndpointConfig struct {
	URL   string
	Key   string
	Model string
}

// HTTPReasoner calls a configured chat-completions-shaped HTTP endpoint and
// enforces a JSON-object response, per the Reasoner contract: the caller
// never observes a transport error or a parse exception, only a {"status":
// "FAILED"} or {"status": "UNKNOWN_FORMAT"} object.
type HTTPReasoner struct {
	endpoint EndpointConfig
	client   *http.Client
}

// NewHTTP constructs an HTTPReasoner bound to a single endpoint. The HTTP
// client is wrapped with otelhttp so outbound calls are traced and carry the
// propagated baggage/trace-context headers.
func NewHTTP(endpoint EndpointConfig) *HTTPReasoner {
	return &HTTPReasoner{
		endpoint: endpoint,
		client: &http.Client{
			Timeout:   60 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Think sends system/user prompts to the configured endpoint and decodes the
// first choice's content as a JSON object.
func (h *HTTPReasoner) Think(ctx context.Context, role Role, systemPrompt, userPrompt string, opts Options) (map[string]any, error) {
	model := h.endpoint.Model
	if opts.ExplicitModel != "" {
		model = opts.ExplicitModel
	}

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: opts.Temperature,
	})
	if err != nil {
		return map[string]any{"error": err.Error(), "status": "FAILED"}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint.URL, bytes.NewReader(body))
	if err != nil {
		return map[string]any{"error": err.Error(), "status": "FAILED"}, nil
	}
	req.Header.Set("Content-Type", "application/json")
	if h.endpoint.Key != "" {
		req.Header.Set("Authorization", "Bearer "+h.endpoint.Key)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return map[string]any{"error": err.Error(), "status": "FAILED"}, nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return map[string]any{"error": err.Error(), "status": "FAILED"}, nil
	}

	if resp.StatusCode >= 300 {
		return map[string]any{
			"error":  fmt.Sprintf("reasoner: endpoint returned status %d", resp.StatusCode),
			"status": "FAILED",
		}, nil
	}

	var decoded chatResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil || len(decoded.Choices) == 0 {
		return map[string]any{"error": "reasoner: malformed completion envelope", "status": "FAILED"}, nil
	}

	content := decoded.Choices[0].Message.Content

	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return map[string]any{"raw_output": content, "status": "UNKNOWN_FORMAT"}, nil
	}
	return obj, nil
}
