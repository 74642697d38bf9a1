package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notegraph/notegraph/internal/driver"
	"github.com/notegraph/notegraph/internal/vault"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestUpsertSourceParams(t *testing.T) {
	mock := &MockDriver{}
	g := NewKnowledgeGraph(mock)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	g.Now = fixedClock(now)

	doc := vault.Document{
		Path:     "notes/hello.md",
		Title:    "Hello World",
		Content:  "# Hello World\nbody",
		FilePath: "/vault/notes/hello.md",
	}

	require.NoError(t, g.UpsertSource(context.Background(), doc))

	require.Len(t, mock.Queries, 1)
	assert.Equal(t, driver.UpsertNoteQuery, mock.Queries[0])

	params := mock.LastParams()
	assert.Equal(t, "Hello World", params["title"])
	assert.Equal(t, "/vault/notes/hello.md", params["file_path"])
	assert.Equal(t, "notes/hello.md", params["relative_path"])
	assert.Equal(t, "# Hello World\nbody", params["content_preview"])
	assert.Equal(t, now, params["created_at"])
}

func TestUpsertSourcePreviewTruncated(t *testing.T) {
	mock := &MockDriver{}
	g := NewKnowledgeGraph(mock)

	doc := vault.Document{
		Title:   "Long",
		Content: strings.Repeat("x", PreviewLength+100),
	}
	require.NoError(t, g.UpsertSource(context.Background(), doc))

	preview := mock.LastParams()["content_preview"].(string)
	assert.Len(t, preview, PreviewLength+3)
	assert.True(t, strings.HasSuffix(preview, "..."))
}

func TestUpsertSourceRefreshesTimestamp(t *testing.T) {
	mock := &MockDriver{}
	g := NewKnowledgeGraph(mock)

	first := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	doc := vault.Document{Title: "T", Content: "v1"}

	g.Now = fixedClock(first)
	require.NoError(t, g.UpsertSource(context.Background(), doc))

	doc.Content = "v2"
	g.Now = fixedClock(second)
	require.NoError(t, g.UpsertSource(context.Background(), doc))

	// Same MERGE against the same title key, latest timestamp wins.
	require.Len(t, mock.Queries, 2)
	assert.Equal(t, mock.Queries[0], mock.Queries[1])
	assert.Equal(t, second, mock.LastParams()["created_at"])
	assert.Equal(t, "v2", mock.LastParams()["content_preview"])
}

func TestUpsertSourceNotConnected(t *testing.T) {
	g := &KnowledgeGraph{Now: time.Now}
	err := g.UpsertSource(context.Background(), vault.Document{Title: "T"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestLinkExtractedToSourceMissingNote(t *testing.T) {
	mock := &MockDriver{} // empty NoteExists result
	g := NewKnowledgeGraph(mock)

	err := g.LinkExtractedToSource(context.Background(), "Ghost")
	require.NoError(t, err)

	assert.True(t, mock.Executed("MATCH (n:Note {title: $title})"))
	assert.False(t, mock.Executed("EXTRACTED_FROM"), "link query must not run for a missing note")
}

func TestLinkExtractedToSourcePresent(t *testing.T) {
	mock := &MockDriver{
		Results: map[string]neo4j.EagerResult{
			driver.NoteExistsQuery: {Records: []*neo4j.Record{
				record([]string{"title"}, []interface{}{"Hello"}),
			}},
		},
	}
	g := NewKnowledgeGraph(mock)

	require.NoError(t, g.LinkExtractedToSource(context.Background(), "Hello"))

	assert.True(t, mock.Executed("MERGE (e)-[:EXTRACTED_FROM]->(note)"))
	assert.True(t, mock.Executed("MERGE (note)-[:APPEARS_IN]->(e)"))
	assert.Equal(t, "Hello", mock.LastParams()["title"])
}

func TestLinkQueryExcludesNotes(t *testing.T) {
	// The broad match must never connect a note to itself or to another
	// note; the filter is structural, in the query.
	assert.Contains(t, driver.LinkEntitiesToNoteQuery, "WHERE NOT e:Note")
}

func TestLinkExtractedToSourceQueryError(t *testing.T) {
	mock := &MockDriver{Err: errors.New("store down")}
	g := NewKnowledgeGraph(mock)

	err := g.LinkExtractedToSource(context.Background(), "Hello")
	assert.Error(t, err)
}

func TestStatsAggregation(t *testing.T) {
	mock := &MockDriver{
		Results: map[string]neo4j.EagerResult{
			driver.NodeCountsQuery: {Records: []*neo4j.Record{
				record([]string{"labels", "count"}, []interface{}{[]interface{}{"Person"}, int64(5)}),
				record([]string{"labels", "count"}, []interface{}{[]interface{}{"Note"}, int64(2)}),
			}},
			driver.RelationshipCountsQuery: {Records: []*neo4j.Record{
				record([]string{"rel_type", "count"}, []interface{}{"MENTIONS", int64(3)}),
			}},
		},
	}
	g := NewKnowledgeGraph(mock)

	stats, err := g.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Person": 5, "Note": 2}, stats.Nodes)
	assert.Equal(t, map[string]int64{"MENTIONS": 3}, stats.Relationships)
	assert.Equal(t, int64(7), stats.TotalNodes())
	assert.Equal(t, int64(3), stats.TotalRelationships())
}

func TestStatsFirstLabelOnly(t *testing.T) {
	mock := &MockDriver{
		Results: map[string]neo4j.EagerResult{
			driver.NodeCountsQuery: {Records: []*neo4j.Record{
				record([]string{"labels", "count"}, []interface{}{[]interface{}{"Person", "Author"}, int64(4)}),
			}},
		},
	}
	g := NewKnowledgeGraph(mock)

	stats, err := g.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Person": 4}, stats.Nodes)
}

func TestStatsEmptyStore(t *testing.T) {
	g := NewKnowledgeGraph(&MockDriver{})

	stats, err := g.Stats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats.Nodes)
	assert.Empty(t, stats.Relationships)
	assert.NotNil(t, stats.Nodes)
	assert.NotNil(t, stats.Relationships)
}

func TestStatsNotConnected(t *testing.T) {
	g := &KnowledgeGraph{}
	_, err := g.Stats(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestEntitiesInNote(t *testing.T) {
	mock := &MockDriver{
		Results: map[string]neo4j.EagerResult{
			driver.EntitiesInNoteQuery: {Records: []*neo4j.Record{
				record([]string{"name", "labels"}, []interface{}{"Alice", []interface{}{"Person", "Entity"}}),
				record([]string{"name", "labels"}, []interface{}{"Go", []interface{}{"Topic"}}),
			}},
		},
	}
	g := NewKnowledgeGraph(mock)

	entities, err := g.EntitiesInNote(context.Background(), "Hello")
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "Alice", entities[0].Name)
	assert.Equal(t, []string{"Person", "Entity"}, entities[0].Labels)
	assert.Equal(t, "Go", entities[1].Name)
}

func TestNotesWithEntity(t *testing.T) {
	mock := &MockDriver{
		Results: map[string]neo4j.EagerResult{
			driver.NotesWithEntityQuery: {Records: []*neo4j.Record{
				record([]string{"title", "relative_path"}, []interface{}{"Plan", "notes/plan.md"}),
			}},
		},
	}
	g := NewKnowledgeGraph(mock)

	notes, err := g.NotesWithEntity(context.Background(), "AI")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Plan", notes[0].Title)
	assert.Equal(t, "notes/plan.md", notes[0].RelativePath)
	assert.Equal(t, "AI", mock.LastParams()["name"])
}

func TestClear(t *testing.T) {
	mock := &MockDriver{
		Results: map[string]neo4j.EagerResult{
			driver.DeleteAllRelationshipsQuery: {Records: []*neo4j.Record{
				record([]string{"deleted"}, []interface{}{int64(3)}),
			}},
			driver.DeleteAllNodesQuery: {Records: []*neo4j.Record{
				record([]string{"deleted"}, []interface{}{int64(8)}),
			}},
		},
	}
	g := NewKnowledgeGraph(mock)

	result, err := g.Clear(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8), result.NodesDeleted)
	assert.Equal(t, int64(3), result.RelationshipsDeleted)

	// Relationships go before nodes.
	require.Len(t, mock.Queries, 2)
	assert.Equal(t, driver.DeleteAllRelationshipsQuery, mock.Queries[0])
	assert.Equal(t, driver.DeleteAllNodesQuery, mock.Queries[1])
}
