package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const anthropicVersion = "2023-06-01"

// AnthropicChatClient 调用 Anthropic 的 /v1/messages 接口。
type AnthropicChatClient struct {
	BaseURL   string
	APIKey    string
	Model     string
	Timeout   time.Duration
	MaxTokens int

	httpc *http.Client
}

// client 不写任何字段：Call 会被编排层并发调用，客户端必须无共享可变状态。
func (c *AnthropicChatClient) client() *http.Client {
	if c.httpc != nil {
		return c.httpc
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (c *AnthropicChatClient) endpoint() string {
	url := strings.TrimRight(c.BaseURL, "/")
	if url == "" {
		url = "https://api.anthropic.com"
	}
	url = strings.TrimSuffix(url, "/v1/messages")
	return url + "/v1/messages"
}

func (c *AnthropicChatClient) CallWithMessages(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = c.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 500
	}
	body := map[string]any{
		"model":      c.Model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}
	if system != "" {
		body["system"] = system
	}
	b, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		return "", &CallError{Status: resp.StatusCode, Msg: msg}
	}

	var r struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", err
	}
	for _, block := range r.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("empty content")
}

// AnthropicModelProvider 将 AnthropicChatClient 适配为 ModelProvider。
type AnthropicModelProvider struct {
	id      string
	enabled bool
	client  *AnthropicChatClient
}

func NewAnthropicModelProvider(id string, enabled bool, client *AnthropicChatClient) *AnthropicModelProvider {
	return &AnthropicModelProvider{id: id, enabled: enabled, client: client}
}

func (p *AnthropicModelProvider) ID() string    { return p.id }
func (p *AnthropicModelProvider) Enabled() bool { return p.enabled }

func (p *AnthropicModelProvider) Call(ctx context.Context, payload ChatPayload) (string, error) {
	return p.client.CallWithMessages(ctx, payload.System, payload.User, payload.MaxTokens)
}
