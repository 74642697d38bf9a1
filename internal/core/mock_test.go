package core

import (
	"context"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// MockDriver records executed queries and replays canned results keyed by
// query text. Safe for concurrent use.
type MockDriver struct {
	mu      sync.Mutex
	Queries []string
	Params  []map[string]interface{}

	Results map[string]neo4j.EagerResult
	Err     error
	// ErrOn limits Err to queries containing this substring. Empty fails all.
	ErrOn string
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.Params = append(m.Params, params)
	m.mu.Unlock()

	if m.Err != nil && (m.ErrOn == "" || strings.Contains(query, m.ErrOn)) {
		return neo4j.EagerResult{}, m.Err
	}
	if result, ok := m.Results[query]; ok {
		return result, nil
	}
	return neo4j.EagerResult{Records: []*neo4j.Record{}}, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Executed(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.Queries {
		if strings.Contains(q, substr) {
			return true
		}
	}
	return false
}

func (m *MockDriver) LastParams() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Params) == 0 {
		return nil
	}
	return m.Params[len(m.Params)-1]
}

func record(keys []string, values []interface{}) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}
