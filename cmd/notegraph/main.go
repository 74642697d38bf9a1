package main

import (
	"bufio"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/notegraph/notegraph/internal/config"
	"github.com/notegraph/notegraph/internal/core"
	"github.com/notegraph/notegraph/internal/core/extraction"
	"github.com/notegraph/notegraph/internal/core/model"
	"github.com/notegraph/notegraph/internal/driver"
	"github.com/notegraph/notegraph/internal/ingest"
	"github.com/notegraph/notegraph/internal/llm"
	"github.com/notegraph/notegraph/internal/vault"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment as-is")
	}

	app := &cli.App{
		Name:  "notegraph",
		Usage: "Build a knowledge graph from a notes vault",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to TOML config file",
				Value:   "config/config.toml",
				EnvVars: []string{"NOTEGRAPH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Read the vault, extract entities, and link them to their notes",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "batch-size",
						Aliases: []string{"b"},
						Usage:   "Documents processed concurrently per batch",
						Value:   config.DefaultBatchSize,
					},
					&cli.StringFlag{
						Name:  "vault",
						Usage: "Vault directory (overrides config)",
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print node and relationship counts",
				Action: statsCommand,
			},
			{
				Name:   "clear",
				Usage:  "Delete every node and relationship in the graph",
				Action: clearCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Skip the confirmation prompt",
					},
				},
			},
			{
				Name:      "entities",
				Usage:     "List entities extracted from a note",
				ArgsUsage: "<note title>",
				Action:    entitiesCommand,
			},
			{
				Name:      "notes",
				Usage:     "List notes that mention an entity",
				ArgsUsage: "<entity name>",
				Action:    notesCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

// connect loads the config and opens the store driver.
func connect(c *cli.Context) (*config.Config, *driver.Neo4jDriver, error) {
	cfg, err := config.LoadWithEnv(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	d, err := driver.NewNeo4jDriver(cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to neo4j: %w", err)
	}
	return cfg, d, nil
}

func ingestCommand(c *cli.Context) error {
	batchSize := c.Int("batch-size")
	if batchSize < 1 {
		return fmt.Errorf("%w: %d", ingest.ErrInvalidBatchSize, batchSize)
	}

	cfg, d, err := connect(c)
	if err != nil {
		return err
	}
	defer d.Close(c.Context)

	vaultPath := cfg.Vault.Path
	if v := c.String("vault"); v != "" {
		vaultPath = v
	}
	if vaultPath == "" {
		return fmt.Errorf("no vault path configured (set [vault] path or VAULT_PATH)")
	}

	llmClient, embedder, err := llm.NewClient(c.Context, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize llm client: %w", err)
	}

	graph := core.NewKnowledgeGraph(d)
	if err := graph.BuildIndices(c.Context); err != nil {
		return err
	}

	reader := vault.NewReader(vaultPath,
		vault.WithExtension(cfg.Vault.Extension),
		vault.WithExclude(cfg.Vault.Exclude))

	orch := ingest.NewOrchestrator(reader, graph, extraction.NewExtractor(d, llmClient, embedder), batchSize)

	before, err := graph.Stats(c.Context)
	if err != nil {
		return err
	}

	report, err := orch.Run(c.Context)
	if err != nil {
		return err
	}

	after, err := graph.Stats(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %d documents in %d batches: %d succeeded, %d failed\n",
		report.Processed, report.Batches, report.Succeeded, report.Failed)
	for _, title := range report.FailedTitles {
		fmt.Printf("  failed: %s\n", title)
	}
	fmt.Printf("Nodes: %d -> %d, relationships: %d -> %d\n",
		before.TotalNodes(), after.TotalNodes(),
		before.TotalRelationships(), after.TotalRelationships())
	printStats(after)
	return nil
}

func statsCommand(c *cli.Context) error {
	_, d, err := connect(c)
	if err != nil {
		return err
	}
	defer d.Close(c.Context)

	stats, err := core.NewKnowledgeGraph(d).Stats(c.Context)
	if err != nil {
		return err
	}
	printStats(stats)
	return nil
}

func clearCommand(c *cli.Context) error {
	_, d, err := connect(c)
	if err != nil {
		return err
	}
	defer d.Close(c.Context)

	graph := core.NewKnowledgeGraph(d)

	stats, err := graph.Stats(c.Context)
	if err != nil {
		return err
	}

	if stats.TotalNodes() == 0 && stats.TotalRelationships() == 0 {
		fmt.Println("Knowledge graph is already empty.")
		return nil
	}

	fmt.Printf("This will delete ALL %d nodes and %d relationships.\n",
		stats.TotalNodes(), stats.TotalRelationships())

	if !c.Bool("yes") && !confirm() {
		fmt.Println("Operation cancelled.")
		return nil
	}

	result, err := graph.Clear(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %d nodes and %d relationships\n",
		result.NodesDeleted, result.RelationshipsDeleted)

	remaining, err := graph.Stats(c.Context)
	if err != nil {
		return err
	}
	if remaining.TotalNodes() != 0 || remaining.TotalRelationships() != 0 {
		fmt.Printf("Warning: some data remains (%d nodes, %d relationships)\n",
			remaining.TotalNodes(), remaining.TotalRelationships())
	}
	return nil
}

func entitiesCommand(c *cli.Context) error {
	title := c.Args().First()
	if title == "" {
		return fmt.Errorf("usage: notegraph entities <note title>")
	}

	_, d, err := connect(c)
	if err != nil {
		return err
	}
	defer d.Close(c.Context)

	entities, err := core.NewKnowledgeGraph(d).EntitiesInNote(c.Context, title)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		fmt.Printf("No entities linked to note %q\n", title)
		return nil
	}
	for _, e := range entities {
		fmt.Printf("  %s (%s)\n", e.Name, strings.Join(e.Labels, ", "))
	}
	return nil
}

func notesCommand(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return fmt.Errorf("usage: notegraph notes <entity name>")
	}

	_, d, err := connect(c)
	if err != nil {
		return err
	}
	defer d.Close(c.Context)

	notes, err := core.NewKnowledgeGraph(d).NotesWithEntity(c.Context, name)
	if err != nil {
		return err
	}
	if len(notes) == 0 {
		fmt.Printf("No notes mention %q\n", name)
		return nil
	}
	for _, n := range notes {
		fmt.Printf("  %s (%s)\n", n.Title, n.RelativePath)
	}
	return nil
}

func confirm() bool {
	fmt.Print("Are you sure you want to proceed? Type 'yes' to confirm: ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	return strings.ToLower(strings.TrimSpace(scanner.Text())) == "yes"
}

func printStats(stats model.GraphStats) {
	fmt.Println("Nodes by type:")
	for _, label := range sortedKeys(stats.Nodes) {
		fmt.Printf("  %s: %d\n", label, stats.Nodes[label])
	}
	fmt.Println("Relationships by type:")
	for _, relType := range sortedKeys(stats.Relationships) {
		fmt.Printf("  %s: %d\n", relType, stats.Relationships[relType])
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
