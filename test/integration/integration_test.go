//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notegraph/notegraph/internal/core"
	"github.com/notegraph/notegraph/internal/core/extraction"
	"github.com/notegraph/notegraph/internal/driver"
	"github.com/notegraph/notegraph/internal/ingest"
	"github.com/notegraph/notegraph/internal/vault"
)

// connectStore skips the test unless NEO4J_URI points at a disposable store.
// Everything in it is wiped.
func connectStore(t *testing.T) *driver.Neo4jDriver {
	t.Helper()
	_ = godotenv.Load("../../.env")

	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		t.Skip("Skipping integration test: NEO4J_URI not set")
	}

	d, err := driver.NewNeo4jDriver(uri, os.Getenv("NEO4J_USER"), os.Getenv("NEO4J_PASSWORD"), os.Getenv("NEO4J_DATABASE"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close(context.Background()) })

	_, err = core.NewKnowledgeGraph(d).Clear(context.Background())
	require.NoError(t, err)
	return d
}

func writeVault(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"alice.md":        "# Alice\nAlice writes Go.",
		"projects/go.md":  "# Go Project\nNotes about Go.",
		".trash/gone.md":  "# Gone\nShould never be read.",
		"plain-notes.txt": "not a markdown file",
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

const cannedExtraction = `{
	"entities": [
		{"name": "Alice", "entity_type": "Person"},
		{"name": "Go", "entity_type": "Topic"}
	],
	"relationships": [
		{"source": "Alice", "target": "Go", "relation_type": "MENTIONS"}
	]
}`

func TestIngestFullFlow(t *testing.T) {
	d := connectStore(t)
	ctx := context.Background()

	graph := core.NewKnowledgeGraph(d)
	require.NoError(t, graph.BuildIndices(ctx))

	extractor := extraction.NewExtractor(d, &extraction.MockLLMClient{Response: cannedExtraction}, nil)
	reader := vault.NewReader(writeVault(t))

	orch := ingest.NewOrchestrator(reader, graph, extractor, 2)
	report, err := orch.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 2, report.Succeeded)
	assert.Zero(t, report.Failed)

	stats, err := graph.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Nodes["Note"])
	assert.Equal(t, int64(2), stats.Nodes["Entity"])
	assert.NotZero(t, stats.Relationships["EXTRACTED_FROM"])
	assert.NotZero(t, stats.Relationships["APPEARS_IN"])
	assert.NotZero(t, stats.Relationships["MENTIONS"])

	entities, err := graph.EntitiesInNote(ctx, "Alice")
	require.NoError(t, err)
	assert.Len(t, entities, 2)

	notes, err := graph.NotesWithEntity(ctx, "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, notes)
}

func TestIngestIdempotent(t *testing.T) {
	d := connectStore(t)
	ctx := context.Background()

	graph := core.NewKnowledgeGraph(d)
	extractor := extraction.NewExtractor(d, &extraction.MockLLMClient{Response: cannedExtraction}, nil)
	root := writeVault(t)

	run := func() {
		orch := ingest.NewOrchestrator(vault.NewReader(root), graph, extractor, 2)
		_, err := orch.Run(ctx)
		require.NoError(t, err)
	}

	run()
	first, err := graph.Stats(ctx)
	require.NoError(t, err)

	run()
	second, err := graph.Stats(ctx)
	require.NoError(t, err)

	// Re-ingesting the same vault must not grow the graph.
	assert.Equal(t, first.Nodes, second.Nodes)
	assert.Equal(t, first.Relationships, second.Relationships)
}

func TestNoNoteToNoteLinks(t *testing.T) {
	d := connectStore(t)
	ctx := context.Background()

	graph := core.NewKnowledgeGraph(d)
	extractor := extraction.NewExtractor(d, &extraction.MockLLMClient{Response: cannedExtraction}, nil)
	orch := ingest.NewOrchestrator(vault.NewReader(writeVault(t)), graph, extractor, 2)
	_, err := orch.Run(ctx)
	require.NoError(t, err)

	result, err := d.ExecuteQuery(ctx, `
		MATCH (a:Note)-[r:EXTRACTED_FROM|APPEARS_IN]-(b:Note)
		RETURN count(r) AS count
	`, nil)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	count, _ := result.Records[0].Get("count")
	assert.EqualValues(t, 0, count)
}

func TestClearEmptiesStore(t *testing.T) {
	d := connectStore(t)
	ctx := context.Background()

	graph := core.NewKnowledgeGraph(d)
	extractor := extraction.NewExtractor(d, &extraction.MockLLMClient{Response: cannedExtraction}, nil)
	orch := ingest.NewOrchestrator(vault.NewReader(writeVault(t)), graph, extractor, 2)
	_, err := orch.Run(ctx)
	require.NoError(t, err)

	result, err := graph.Clear(ctx)
	require.NoError(t, err)
	assert.NotZero(t, result.NodesDeleted)

	stats, err := graph.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats.Nodes)
	assert.Empty(t, stats.Relationships)
}
