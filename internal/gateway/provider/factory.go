package provider

import (
	"fmt"
	"strings"
	"time"

	"github.com/kaiitheguy/stock-fantasy-api/internal/logger"
)

// ModelCfg 是工厂的输入（由 config 层映射而来）。
type ModelCfg struct {
	ID        string
	Provider  string // openai | anthropic | deepseek
	APIURL    string
	APIKey    string
	Model     string
	CostTier  string
	Enabled   bool
	MaxTokens int
}

const deepseekDefaultURL = "https://api.deepseek.com/v1"

// BuildProvidersFromConfig 按配置构建所有启用的 provider，键为模型条目 ID。
func BuildProvidersFromConfig(models []ModelCfg, timeout time.Duration) (map[string]ModelProvider, error) {
	out := make(map[string]ModelProvider, len(models))
	for _, m := range models {
		if !m.Enabled {
			continue
		}
		id := strings.TrimSpace(m.ID)
		if id == "" {
			id = fmt.Sprintf("%s:%s", strings.TrimSpace(m.Provider), strings.TrimSpace(m.Model))
			logger.Warnf("ai.models.id 未配置，已为 %q 生成 ID: %s", m.Provider, id)
		}
		if _, dup := out[id]; dup {
			return nil, fmt.Errorf("duplicate model id %q", id)
		}
		p, err := buildOne(id, m, timeout)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no enabled models configured")
	}
	return out, nil
}

func buildOne(id string, m ModelCfg, timeout time.Duration) (ModelProvider, error) {
	switch strings.ToLower(strings.TrimSpace(m.Provider)) {
	case "openai":
		return NewOpenAIModelProvider(id, true, &OpenAIChatClient{
			BaseURL:   m.APIURL,
			APIKey:    m.APIKey,
			Model:     m.Model,
			Timeout:   timeout,
			MaxTokens: m.MaxTokens,
		}), nil
	case "deepseek":
		url := m.APIURL
		if url == "" {
			url = deepseekDefaultURL
		}
		return NewOpenAIModelProvider(id, true, &OpenAIChatClient{
			BaseURL:   url,
			APIKey:    m.APIKey,
			Model:     m.Model,
			Timeout:   timeout,
			MaxTokens: m.MaxTokens,
		}), nil
	case "anthropic":
		return NewAnthropicModelProvider(id, true, &AnthropicChatClient{
			BaseURL:   m.APIURL,
			APIKey:    m.APIKey,
			Model:     m.Model,
			Timeout:   timeout,
			MaxTokens: m.MaxTokens,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q for model %s", m.Provider, id)
	}
}
