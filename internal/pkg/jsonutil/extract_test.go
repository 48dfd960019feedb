package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"fence no hint", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"prose around", `sure thing: {"a":1} hope that helps`, `{"a":1}`, true},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`, true},
		{"brace in string", `{"a":"}"}`, `{"a":"}"}`, true},
		{"escaped quote", `{"a":"say \"hi\"}"}`, `{"a":"say \"hi\"}"}`, true},
		{"array", `[{"a":1}]`, `[{"a":1}]`, true},
		{"fenced array", "```json\n[{\"a\":1},{\"b\":2}]\n```", `[{"a":1},{"b":2}]`, true},
		{"array with prose", `here you go: [{"a":1},{"b":2}]`, `[{"a":1},{"b":2}]`, true},
		{"object before array", `{"a":1} [2]`, `{"a":1}`, true},
		{"array before object", `[1,2] {"a":1}`, `[1,2]`, true},
		{"unbalanced array then object", `[oops {"a":1}`, `{"a":1}`, true},
		{"no json", "nothing to see here", "", false},
		{"unbalanced", `{"a":1`, "", false},
		{"empty", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractJSON(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
