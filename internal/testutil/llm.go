package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"interlink/internal/llm"
)

// MockLLM is a scripted llm.TextGenerator. Responses are matched by prompt
// substring in insertion order; Default answers everything else.
type MockLLM struct {
	mu         sync.Mutex
	matchers   []string
	responses  map[string]string
	Default    string
	ShouldFail bool
	Block      bool // wait for the context to expire

	Prompts []string
	Options []llm.TextGenerationOptions
}

// NewMockLLM returns a mock that answers every prompt with response
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Default: response, responses: make(map[string]string)}
}

// On answers prompts containing substr with response
func (m *MockLLM) On(substr, response string) *MockLLM {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.responses == nil {
		m.responses = make(map[string]string)
	}
	if _, ok := m.responses[substr]; !ok {
		m.matchers = append(m.matchers, substr)
	}
	m.responses[substr] = response
	return m
}

// CallCount returns the number of GenerateText calls so far
func (m *MockLLM) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

func (m *MockLLM) GenerateText(ctx context.Context, prompt string, options llm.TextGenerationOptions) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.Options = append(m.Options, options)
	block, fail := m.Block, m.ShouldFail
	response := m.Default
	for _, substr := range m.matchers {
		if strings.Contains(prompt, substr) {
			response = m.responses[substr]
			break
		}
	}
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if fail {
		return "", fmt.Errorf("mock LLM error")
	}
	return response, nil
}
