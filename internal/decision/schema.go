package decision

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// 决策对象的最小结构约束。字段类型故意放宽（quantity 允许字符串数字），
// 细粒度校验在 ParseAndValidate 里完成并给出具体的降级原因。
const decisionSchemaJSON = `{
  "type": "object",
  "required": ["action"],
  "properties": {
    "action": {"type": "string"},
    "ticker": {"type": ["string", "null"]},
    "quantity": {"type": ["integer", "number", "string", "null"]},
    "confidence": {"type": ["number", "integer", "string", "null"]},
    "reasoning": {"type": ["string", "null"]}
  }
}`

var decisionSchema = jsonschema.MustCompileString("decision.json", decisionSchemaJSON)

// validateAgainstSchema 检查提取出的 JSON 对象是否满足决策结构。
func validateAgainstSchema(objJSON string) error {
	var doc any
	dec := json.NewDecoder(strings.NewReader(objJSON))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return decisionSchema.Validate(doc)
}
