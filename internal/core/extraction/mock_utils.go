package extraction

import (
	"context"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type MockLLMClient struct {
	mu       sync.Mutex
	Response string
	Err      error
	Prompts  []string
}

func (m *MockLLMClient) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

type MockEmbedderClient struct {
	Response []float32
	Err      error
}

func (m *MockEmbedderClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

type MockGraphDriver struct {
	mu      sync.Mutex
	Queries []string
	Params  []map[string]interface{}
	Err     error
}

func (m *MockGraphDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.Params = append(m.Params, params)
	m.mu.Unlock()
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	return neo4j.EagerResult{Records: []*neo4j.Record{}}, nil
}

func (m *MockGraphDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockGraphDriver) Close(ctx context.Context) error {
	return nil
}
