package provider

import (
	"context"
	"errors"
	"fmt"
)

// ChatPayload 一次对话补全请求的材料。
type ChatPayload struct {
	System    string
	User      string
	MaxTokens int
}

// ModelProvider 把一个已配置的模型封装为可调用对象。
// 实现必须是无共享状态的：并发调用彼此独立。
type ModelProvider interface {
	ID() string
	Enabled() bool

	Call(ctx context.Context, payload ChatPayload) (string, error)
}

// CallError 携带上游 HTTP 状态，供编排层判断是否值得重试。
type CallError struct {
	Status int
	Msg    string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("status=%d: %s", e.Status, e.Msg)
}

// Retryable 对 429 与 5xx 返回 true；鉴权/请求格式错误不重试。
func (e *CallError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}

// IsRetryable 判断任意调用错误是否为瞬时错误（网络错误、超时、429/5xx）。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Retryable()
	}
	// 非 CallError 的失败（连接被拒、超时等）一律按瞬时处理。
	return true
}
