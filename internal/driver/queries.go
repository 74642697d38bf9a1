package driver

const (
	// UpsertNoteQuery creates or overwrites the Note node for a document.
	// Keyed by title: two files sharing a title merge into one node.
	// created_at is refreshed on every write, so it is "last written at",
	// not a true creation time.
	UpsertNoteQuery = `
		MERGE (n:Note {title: $title})
		SET n.file_path = $file_path,
			n.relative_path = $relative_path,
			n.content_preview = $content_preview,
			n.created_at = $created_at
		RETURN n.title AS title
	`

	NoteExistsQuery = `
		MATCH (n:Note {title: $title})
		RETURN n.title AS title
		LIMIT 1
	`

	// LinkEntitiesToNoteQuery connects every non-Note node currently in the
	// store to the named note, in both directions. The NOT e:Note filter
	// keeps notes from linking to themselves or to each other.
	LinkEntitiesToNoteQuery = `
		MATCH (note:Note {title: $title})
		MATCH (e)
		WHERE NOT e:Note
		MERGE (e)-[:EXTRACTED_FROM]->(note)
		MERGE (note)-[:APPEARS_IN]->(e)
		RETURN count(e) AS linked
	`

	NodeCountsQuery = `
		MATCH (n)
		RETURN labels(n) AS labels, count(n) AS count
	`

	RelationshipCountsQuery = `
		MATCH ()-[r]->()
		RETURN type(r) AS rel_type, count(r) AS count
	`

	EntitiesInNoteQuery = `
		MATCH (note:Note {title: $title})-[:APPEARS_IN]->(e)
		RETURN e.name AS name, labels(e) AS labels
		ORDER BY name
	`

	NotesWithEntityQuery = `
		MATCH (e)-[:EXTRACTED_FROM]->(note:Note)
		WHERE NOT e:Note AND toLower(e.name) CONTAINS toLower($name)
		RETURN DISTINCT note.title AS title, note.relative_path AS relative_path
		ORDER BY title
	`

	// UpsertEntityQuery merges extracted entities by name. The uuid is only
	// assigned on first create so re-extraction keeps node identity stable.
	UpsertEntityQuery = `
		MERGE (n:Entity {name: $name})
		ON CREATE SET n.uuid = $uuid
		SET n.entity_type = $entity_type,
			n.created_at = $created_at,
			n.name_embedding = $name_embedding
		RETURN n.name AS name
	`

	UpsertEntityRelationshipQuery = `
		MATCH (a:Entity {name: $source_name})
		MATCH (b:Entity {name: $target_name})
		MERGE (a)-[r:%s]->(b)
		SET r.created_at = $created_at
		RETURN type(r) AS rel_type
	`

	// Relationships go first so node deletion never hits dangling edges.
	DeleteAllRelationshipsQuery = `
		MATCH ()-[r]->()
		DELETE r
		RETURN count(r) AS deleted
	`

	DeleteAllNodesQuery = `
		MATCH (n)
		DELETE n
		RETURN count(n) AS deleted
	`
)
