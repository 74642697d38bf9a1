package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/notegraph/notegraph/internal/core/common"
	"github.com/notegraph/notegraph/internal/core/model"
	"github.com/notegraph/notegraph/internal/driver"
	"github.com/notegraph/notegraph/internal/llm"
)

// ErrExtraction wraps any failure while extracting one document.
var ErrExtraction = errors.New("extraction failed")

// EntityTypes is the label allow-list offered to the LLM.
var EntityTypes = []string{"Person", "Book", "Topic", "Organisation", "Article", "Paper"}

// RelationshipTypes is the relationship allow-list. Anything outside it is
// dropped before it can reach a Cypher query.
var RelationshipTypes = []string{"MENTIONS", "RELATES_TO", "WRITTEN_BY", "ABOUT", "PART_OF"}

const extractionPrompt = `You are building a knowledge graph from personal notes.
Extract entities and relationships from the text below.

Allowed entity types: %s
Allowed relationship types: %s

Respond with a single JSON object of the form:
{"entities": [{"name": "...", "entity_type": "..."}],
 "relationships": [{"source": "...", "target": "...", "relation_type": "..."}]}

Relationship source and target must be names from the entities list.
Text:
%s`

// Extractor turns document text into entity and relationship nodes in the
// graph store using an LLM.
type Extractor struct {
	Driver   driver.GraphDriver
	LLM      llm.LLMClient
	Embedder llm.EmbedderClient

	Logger *slog.Logger

	// UUIDGenerator is swappable for deterministic tests.
	UUIDGenerator func() string
}

func NewExtractor(d driver.GraphDriver, llmClient llm.LLMClient, embedder llm.EmbedderClient) *Extractor {
	return &Extractor{
		Driver:        d,
		LLM:           llmClient,
		Embedder:      embedder,
		Logger:        slog.Default(),
		UUIDGenerator: func() string { return uuid.New().String() },
	}
}

// Extract prompts the LLM for graph facts in the text and merges them into
// the store. Entities are keyed by name, so repeated extraction of the same
// name updates one node.
func (e *Extractor) Extract(ctx context.Context, text string) error {
	prompt := fmt.Sprintf(extractionPrompt,
		strings.Join(EntityTypes, ", "),
		strings.Join(RelationshipTypes, ", "),
		text)

	response, err := e.LLM.Generate(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	extracted, err := common.ParseJSON[model.Extraction](response)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	now := time.Now().UTC()

	saved := make(map[string]bool, len(extracted.Entities))
	for _, entity := range extracted.Entities {
		name := strings.TrimSpace(entity.Name)
		if name == "" {
			continue
		}
		if err := e.saveEntity(ctx, name, entity.EntityType, now); err != nil {
			return fmt.Errorf("%w: save entity %q: %v", ErrExtraction, name, err)
		}
		saved[name] = true
	}

	for _, rel := range extracted.Relationships {
		if !saved[rel.Source] || !saved[rel.Target] {
			e.Logger.Warn("skipping relationship with unknown endpoint",
				"source", rel.Source, "target", rel.Target)
			continue
		}
		relType, ok := normalizeRelationType(rel.RelationType)
		if !ok {
			e.Logger.Warn("skipping relationship with unsupported type",
				"relation_type", rel.RelationType)
			continue
		}
		if err := e.saveRelationship(ctx, rel.Source, rel.Target, relType, now); err != nil {
			return fmt.Errorf("%w: save relationship %s-[%s]->%s: %v",
				ErrExtraction, rel.Source, relType, rel.Target, err)
		}
	}

	return nil
}

func (e *Extractor) saveEntity(ctx context.Context, name, entityType string, now time.Time) error {
	var embedding []float32
	if e.Embedder != nil {
		vec, err := e.Embedder.Embed(ctx, name)
		if err == nil {
			embedding = vec
		}
	}

	params := map[string]interface{}{
		"name":           name,
		"uuid":           e.UUIDGenerator(),
		"entity_type":    entityType,
		"created_at":     now,
		"name_embedding": embedding,
	}

	_, err := e.Driver.ExecuteQuery(ctx, driver.UpsertEntityQuery, params)
	return err
}

func (e *Extractor) saveRelationship(ctx context.Context, source, target, relType string, now time.Time) error {
	// Relationship types cannot be parametrized in Cypher; relType has
	// already been checked against the allow-list.
	query := fmt.Sprintf(driver.UpsertEntityRelationshipQuery, relType)
	params := map[string]interface{}{
		"source_name": source,
		"target_name": target,
		"created_at":  now,
	}

	_, err := e.Driver.ExecuteQuery(ctx, query, params)
	return err
}

func normalizeRelationType(relType string) (string, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(relType), " ", "_"))
	for _, allowed := range RelationshipTypes {
		if normalized == allowed {
			return normalized, true
		}
	}
	return "", false
}
