package jsonutil

import "strings"

const codeFence = "```"

// ExtractJSON pulls the first JSON object or array out of free-form model
// output. Fenced blocks (``` or ```json) are preferred over bare scans.
func ExtractJSON(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if block, ok := extractFromFence(raw); ok {
		return block, true
	}
	return scanFirst(raw)
}

// scanFirst scans from whichever of the first '{' / '[' occurs earlier,
// so an array payload is not reduced to its first element object.
func scanFirst(raw string) (string, bool) {
	objIdx := strings.IndexByte(raw, '{')
	arrIdx := strings.IndexByte(raw, '[')
	if arrIdx != -1 && (objIdx == -1 || arrIdx < objIdx) {
		if arr, ok := scanBalanced(raw, '[', ']'); ok {
			return arr, true
		}
		return scanBalanced(raw, '{', '}')
	}
	if obj, ok := scanBalanced(raw, '{', '}'); ok {
		return obj, true
	}
	return scanBalanced(raw, '[', ']')
}

func extractFromFence(raw string) (string, bool) {
	start := strings.Index(raw, codeFence)
	if start == -1 {
		return "", false
	}
	rest := raw[start+len(codeFence):]
	end := strings.Index(rest, codeFence)
	if end == -1 {
		return "", false
	}
	block := strings.TrimLeft(rest[:end], "\r\n")
	// Drop a language hint ("json") on the first fence line.
	if idx := strings.Index(block, "\n"); idx != -1 {
		first := strings.TrimSpace(block[:idx])
		if first != "" && !strings.ContainsAny(first, "[{") {
			block = block[idx+1:]
		}
	}
	block = strings.TrimSpace(block)
	if block == "" {
		return "", false
	}
	if span, ok := scanFirst(block); ok {
		return span, true
	}
	return block, true
}

// scanBalanced finds the first balanced open..close span, string-aware so
// braces inside quoted values do not break the depth count.
func scanBalanced(raw string, open, close byte) (string, bool) {
	start := strings.IndexByte(raw, open)
	if start == -1 {
		return "", false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escape:
				escape = false
			case ch == '\\':
				escape = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return strings.TrimSpace(raw[start : i+1]), true
			}
		}
	}
	return "", false
}
