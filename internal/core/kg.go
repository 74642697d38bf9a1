package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/notegraph/notegraph/internal/core/common"
	"github.com/notegraph/notegraph/internal/core/model"
	"github.com/notegraph/notegraph/internal/driver"
	"github.com/notegraph/notegraph/internal/vault"
)

// ErrNotConnected is returned when an operation runs without a store driver.
var ErrNotConnected = errors.New("graph store connection not established")

// PreviewLength is how many runes of note content are stored on the note node.
const PreviewLength = 500

// KnowledgeGraph owns the note-side graph schema: Note nodes keyed by title
// and the EXTRACTED_FROM / APPEARS_IN relationships tying extracted entities
// back to the notes they came from.
type KnowledgeGraph struct {
	Driver driver.GraphDriver
	Logger *slog.Logger

	// Now is swappable for deterministic tests.
	Now func() time.Time
}

func NewKnowledgeGraph(d driver.GraphDriver) *KnowledgeGraph {
	return &KnowledgeGraph{
		Driver: d,
		Logger: slog.Default(),
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

func (g *KnowledgeGraph) BuildIndices(ctx context.Context) error {
	if g.Driver == nil {
		return ErrNotConnected
	}
	return g.Driver.BuildIndices(ctx)
}

// UpsertSource creates or overwrites the Note node for doc. Repeated calls
// for the same title keep a single node; created_at is refreshed every time.
func (g *KnowledgeGraph) UpsertSource(ctx context.Context, doc vault.Document) error {
	if g.Driver == nil {
		return ErrNotConnected
	}

	params := map[string]interface{}{
		"title":           doc.Title,
		"file_path":       doc.FilePath,
		"relative_path":   doc.Path,
		"content_preview": common.Truncate(doc.Content, PreviewLength),
		"created_at":      g.Now(),
	}

	if _, err := g.Driver.ExecuteQuery(ctx, driver.UpsertNoteQuery, params); err != nil {
		return fmt.Errorf("failed to upsert note %q: %w", doc.Title, err)
	}
	return nil
}

// LinkExtractedToSource connects every non-Note node currently in the store
// to the note with the given title, in both directions. A missing note is a
// warning, not an error. The link MERGEs are idempotent.
//
// The match is deliberately broad: it assumes one document is fully processed
// before another document's linking runs. When documents in a batch overlap
// in time, entities from a concurrently processed document can be linked too.
func (g *KnowledgeGraph) LinkExtractedToSource(ctx context.Context, title string) error {
	if g.Driver == nil {
		return ErrNotConnected
	}

	exists, err := g.Driver.ExecuteQuery(ctx, driver.NoteExistsQuery, map[string]interface{}{"title": title})
	if err != nil {
		return fmt.Errorf("failed to look up note %q: %w", title, err)
	}
	if len(exists.Records) == 0 {
		g.Logger.Warn("note not found, skipping entity linking", "title", title)
		return nil
	}

	if _, err := g.Driver.ExecuteQuery(ctx, driver.LinkEntitiesToNoteQuery, map[string]interface{}{"title": title}); err != nil {
		return fmt.Errorf("failed to link entities to note %q: %w", title, err)
	}
	return nil
}

// Stats aggregates node counts by first label and relationship counts by
// type. An empty store yields empty maps.
func (g *KnowledgeGraph) Stats(ctx context.Context) (model.GraphStats, error) {
	stats := model.GraphStats{
		Nodes:         map[string]int64{},
		Relationships: map[string]int64{},
	}
	if g.Driver == nil {
		return stats, ErrNotConnected
	}

	nodeResult, err := g.Driver.ExecuteQuery(ctx, driver.NodeCountsQuery, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to count nodes: %w", err)
	}
	for _, record := range nodeResult.Records {
		labels := stringSlice(recordValue(record, "labels"))
		if len(labels) == 0 {
			continue
		}
		stats.Nodes[labels[0]] += asInt64(recordValue(record, "count"))
	}

	relResult, err := g.Driver.ExecuteQuery(ctx, driver.RelationshipCountsQuery, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to count relationships: %w", err)
	}
	for _, record := range relResult.Records {
		relType, ok := recordValue(record, "rel_type").(string)
		if !ok {
			continue
		}
		stats.Relationships[relType] += asInt64(recordValue(record, "count"))
	}

	return stats, nil
}

// EntitiesInNote returns the extracted entities linked to the named note.
func (g *KnowledgeGraph) EntitiesInNote(ctx context.Context, title string) ([]model.Entity, error) {
	if g.Driver == nil {
		return nil, ErrNotConnected
	}

	result, err := g.Driver.ExecuteQuery(ctx, driver.EntitiesInNoteQuery, map[string]interface{}{"title": title})
	if err != nil {
		return nil, fmt.Errorf("failed to query entities in note %q: %w", title, err)
	}

	var entities []model.Entity
	for _, record := range result.Records {
		name, _ := recordValue(record, "name").(string)
		entities = append(entities, model.Entity{
			Name:   name,
			Labels: stringSlice(recordValue(record, "labels")),
		})
	}
	return entities, nil
}

// NotesWithEntity returns notes linked to any entity whose name contains the
// given text, case-insensitively.
func (g *KnowledgeGraph) NotesWithEntity(ctx context.Context, name string) ([]model.NoteRef, error) {
	if g.Driver == nil {
		return nil, ErrNotConnected
	}

	result, err := g.Driver.ExecuteQuery(ctx, driver.NotesWithEntityQuery, map[string]interface{}{"name": name})
	if err != nil {
		return nil, fmt.Errorf("failed to query notes with entity %q: %w", name, err)
	}

	var notes []model.NoteRef
	for _, record := range result.Records {
		title, _ := recordValue(record, "title").(string)
		relPath, _ := recordValue(record, "relative_path").(string)
		notes = append(notes, model.NoteRef{Title: title, RelativePath: relPath})
	}
	return notes, nil
}

// Clear deletes every relationship, then every node. Destructive; the CLI
// asks for confirmation before calling this.
func (g *KnowledgeGraph) Clear(ctx context.Context) (model.ClearResult, error) {
	var result model.ClearResult
	if g.Driver == nil {
		return result, ErrNotConnected
	}

	relResult, err := g.Driver.ExecuteQuery(ctx, driver.DeleteAllRelationshipsQuery, nil)
	if err != nil {
		return result, fmt.Errorf("failed to delete relationships: %w", err)
	}
	if len(relResult.Records) > 0 {
		result.RelationshipsDeleted = asInt64(recordValue(relResult.Records[0], "deleted"))
	}

	nodeResult, err := g.Driver.ExecuteQuery(ctx, driver.DeleteAllNodesQuery, nil)
	if err != nil {
		return result, fmt.Errorf("failed to delete nodes: %w", err)
	}
	if len(nodeResult.Records) > 0 {
		result.NodesDeleted = asInt64(recordValue(nodeResult.Records[0], "deleted"))
	}

	return result, nil
}

func recordValue(record *neo4j.Record, key string) interface{} {
	value, _ := record.Get(key)
	return value
}

func stringSlice(value interface{}) []string {
	raw, ok := value.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
