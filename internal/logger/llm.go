package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

// LLM 评述请求/响应的独立落盘，便于排查提示词与模型输出。

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

func logLLM(kind, agent string, sections map[string]string, order []string) {
	llmMu.Lock()
	logger := llmLog
	llmMu.Unlock()
	if logger == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM][")
	b.WriteString(kind)
	b.WriteString("]")
	if agent != "" {
		b.WriteString("[")
		b.WriteString(agent)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, title := range order {
		body := sections[title]
		b.WriteString("--- ")
		b.WriteString(title)
		b.WriteString(" ---\n")
		b.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	logger.Print(b.String())
}

func LogLLMRequest(agent, prompt string) {
	logLLM("request", agent, map[string]string{"PROMPT": prompt}, []string{"PROMPT"})
}

func LogLLMResponse(agent, raw string) {
	logLLM("response", agent, map[string]string{"RAW": raw}, []string{"RAW"})
}
