package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

// Transcript log for raw provider traffic. Separate from the main logger so the
// (often very large) prompts and completions can go to a dedicated file.

var (
	llmMu  sync.Mutex
	llmLog *log.Logger
)

func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

func llmDump(header string, sections map[string]string, order []string) {
	llmMu.Lock()
	l := llmLog
	llmMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for _, title := range order {
		body, ok := sections[title]
		if !ok {
			continue
		}
		b.WriteString("--- ")
		b.WriteString(title)
		b.WriteString(" ---\n")
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

// LogLLMRequest records the exact prompts sent to one provider for one agent.
func LogLLMRequest(providerID, agent, system, user string) {
	llmDump("[LLM][request]["+providerID+"]["+agent+"]",
		map[string]string{"SYSTEM": system, "USER": user},
		[]string{"SYSTEM", "USER"})
}

// LogLLMResponse records the raw completion text (or the error string).
func LogLLMResponse(providerID, agent, raw string) {
	llmDump("[LLM][response]["+providerID+"]["+agent+"]",
		map[string]string{"RAW": raw},
		[]string{"RAW"})
}
