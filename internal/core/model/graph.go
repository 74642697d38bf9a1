package model

// GraphStats holds aggregate counts over the store. Node counts are grouped
// by each node's first label only, so multi-label nodes are counted once.
type GraphStats struct {
	Nodes         map[string]int64 `json:"nodes"`
	Relationships map[string]int64 `json:"relationships"`
}

func (s GraphStats) TotalNodes() int64 {
	var total int64
	for _, c := range s.Nodes {
		total += c
	}
	return total
}

func (s GraphStats) TotalRelationships() int64 {
	var total int64
	for _, c := range s.Relationships {
		total += c
	}
	return total
}

// Entity is a node produced by extraction, as seen through the lookup
// queries. Its attribute schema is owned by the extractor.
type Entity struct {
	Name   string   `json:"name"`
	Labels []string `json:"labels"`
}

// NoteRef identifies a note node without carrying its content.
type NoteRef struct {
	Title        string `json:"title"`
	RelativePath string `json:"relative_path"`
}

// ClearResult reports what a full wipe removed.
type ClearResult struct {
	NodesDeleted         int64 `json:"nodes_deleted"`
	RelationshipsDeleted int64 `json:"relationships_deleted"`
}
