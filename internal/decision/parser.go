package decision

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kaiitheguy/stock-fantasy-api/internal/pkg/jsonutil"
	"github.com/kaiitheguy/stock-fantasy-api/internal/pkg/text"
)

// 中文说明：
// 解析器把任意模型输出规范化为结构合法的 Decision。
// 结构性解析失败 -> hold + malformed=true；
// 语义校验失败（未知 ticker、非法数量等）-> hold + 具体原因标签。
// 此路径永远不向调用方抛错。

// 原始输出截断长度：进入 reasoning 的调试文本不超过这个字节数。
const rawReasonLimit = 300

// ParseAndValidate 把原始模型输出转为 Decision。保证返回值始终结构合法。
func ParseAndValidate(raw string, known TickerSet) Decision {
	now := time.Now().UTC()

	obj, err := coerceDecisionObject(raw)
	if err != nil {
		return malformedHold(raw, now)
	}
	if err := validateAgainstSchema(obj); err != nil {
		return malformedHold(raw, now)
	}

	parsed := gjson.Parse(obj)
	d := Decision{
		Action:     normalizeAction(parsed.Get("action").String()),
		Ticker:     normalizeTicker(parsed.Get("ticker").String()),
		Confidence: clampConfidence(parsed.Get("confidence")),
		Reasoning:  strings.TrimSpace(parsed.Get("reasoning").String()),
		ProducedAt: now,
	}

	switch d.Action {
	case ActionHold:
		d.Ticker = ""
		d.Quantity = 0
		return d
	case ActionBuy, ActionSell:
	default:
		return downgrade(d, ReasonInvalidAction)
	}

	if !known.Contains(d.Ticker) {
		return downgrade(d, ReasonUnknownTicker)
	}
	qty, ok := parseQuantity(parsed.Get("quantity"))
	if !ok {
		return downgrade(d, ReasonInvalidQuantity)
	}
	d.Quantity = qty
	return d
}

// coerceDecisionObject 提取并规整出单个决策对象的 JSON 文本。
// 容忍 ```json 代码块、{"decision": {...}} 包装、以及单元素数组。
func coerceDecisionObject(raw string) (string, error) {
	block, ok := jsonutil.ExtractJSON(raw)
	if !ok {
		return "", fmt.Errorf("no JSON found")
	}
	if !gjson.Valid(block) {
		return "", fmt.Errorf("invalid JSON")
	}
	parsed := gjson.Parse(block)
	if parsed.IsArray() {
		arr := parsed.Array()
		if len(arr) == 0 || !arr[0].IsObject() {
			return "", fmt.Errorf("empty decision array")
		}
		parsed = arr[0]
	}
	if !parsed.IsObject() {
		return "", fmt.Errorf("root must be a JSON object")
	}
	if inner := parsed.Get("decision"); inner.Exists() && inner.IsObject() {
		parsed = inner
	}
	if !parsed.Get("action").Exists() {
		return "", fmt.Errorf("missing action field")
	}
	return parsed.Raw, nil
}

func malformedHold(raw string, now time.Time) Decision {
	return Decision{
		Action:     ActionHold,
		Confidence: 0,
		Reasoning:  text.Truncate(strings.TrimSpace(raw), rawReasonLimit),
		ProducedAt: now,
		Malformed:  true,
	}
}

// downgrade 保留原 reasoning 供排查，但在前面标注具体原因。
func downgrade(d Decision, reason string) Decision {
	d.Action = ActionHold
	d.Ticker = ""
	d.Quantity = 0
	if d.Reasoning != "" {
		d.Reasoning = reason + ": " + text.Truncate(d.Reasoning, rawReasonLimit)
	} else {
		d.Reasoning = reason
	}
	return d
}

// normalizeAction 大小写不敏感，并把 wait 视为 hold。
func normalizeAction(a string) string {
	a = strings.ToLower(strings.TrimSpace(a))
	if a == "wait" {
		return ActionHold
	}
	return a
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// parseQuantity 接受整数、整数值的浮点数或数字字符串；必须为正。
func parseQuantity(v gjson.Result) (int64, bool) {
	switch v.Type {
	case gjson.Number:
		f := v.Float()
		if f <= 0 || f != math.Trunc(f) || f > math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	case gjson.String:
		s := strings.TrimSpace(v.String())
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// clampConfidence 钳制到 [0,1]；缺失或不可解析按 0.5 处理。
func clampConfidence(v gjson.Result) float64 {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
		if err != nil {
			return 0.5
		}
		f = parsed
	default:
		return 0.5
	}
	if math.IsNaN(f) {
		return 0.5
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
