package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/w-h-a/mnemo/embedder"
	"github.com/w-h-a/mnemo/embedder/mock"
	openaiembedder "github.com/w-h-a/mnemo/embedder/openai"
	"github.com/w-h-a/mnemo/generator"
	openaigenerator "github.com/w-h-a/mnemo/generator/openai"
	"github.com/w-h-a/mnemo/memory"
	"github.com/w-h-a/mnemo/memory/hybrid"
	"github.com/w-h-a/mnemo/memory/providers/cacher"
	cachermemory "github.com/w-h-a/mnemo/memory/providers/cacher/memory"
	"github.com/w-h-a/mnemo/memory/providers/cacher/redis"
	"github.com/w-h-a/mnemo/memory/providers/facts"
	"github.com/w-h-a/mnemo/memory/providers/facts/sqlite"
	"github.com/w-h-a/mnemo/memory/providers/vector"
	"github.com/w-h-a/mnemo/memory/providers/vector/chromem"
	"github.com/w-h-a/mnemo/rag"
	"github.com/w-h-a/mnemo/rag/loader/file"
)

var (
	cfg struct {
		// Cache config
		RedisLocation string `help:"Address of redis for the conversation window; empty uses the in-process cache" default:""`
		MaxMessages   int    `help:"Max messages kept per conversation window" default:"50"`

		// Durable store config
		DB string `help:"Path of the sqlite database for facts and summaries" default:"mnemo.db"`

		// Model config
		APIKey         string `help:"OpenAI API key; empty runs fully offline with deterministic embeddings and a canned generator" default:""`
		Model          string `help:"Model identifier for summaries and answers" default:"gpt-4o-mini"`
		EmbeddingModel string `help:"Model identifier for embeddings" default:"text-embedding-3-small"`

		// Demo config
		User    string `help:"User identifier" default:"demo-user"`
		Session string `help:"Session identifier" default:"demo-session"`
	}
)

type cannedGenerator struct{}

func (g *cannedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "SUMMARY: Offline canned response.\nTOPICS: demo\nACTION ITEMS: none\nSENTIMENT: neutral", nil
}

func main() {
	_ = kong.Parse(&cfg)
	ctx := context.Background()

	// Conversation window: redis when configured, in-process otherwise
	var cache cacher.Cacher
	if len(cfg.RedisLocation) > 0 {
		var err error
		cache, err = redis.NewCacher(
			cacher.WithLocation(cfg.RedisLocation),
			cacher.WithMaxMessages(cfg.MaxMessages),
		)
		if err != nil {
			log.Printf("redis unavailable, using in-process cache: %v", err)
			cache = cachermemory.NewCacher(
				cacher.WithMaxMessages(cfg.MaxMessages),
			)
		}
	} else {
		cache = cachermemory.NewCacher(
			cacher.WithMaxMessages(cfg.MaxMessages),
		)
	}

	// Durable facts and summaries
	factStore, err := sqlite.NewStorer(
		facts.WithLocation(cfg.DB),
	)
	if err != nil {
		log.Fatalf("failed to open fact store: %v", err)
	}
	defer factStore.Close()

	// Semantic memory, embedded
	vectorStore := chromem.NewStorer(
		vector.WithCollection("demo"),
	)
	if err := vectorStore.Init(ctx); err != nil {
		log.Fatalf("failed to init vector store: %v", err)
	}

	var emb embedder.Embedder
	var gen generator.Generator
	if len(cfg.APIKey) > 0 {
		emb = openaiembedder.NewEmbedder(
			embedder.WithApiKey(cfg.APIKey),
			embedder.WithModel(cfg.EmbeddingModel),
		)
		gen = openaigenerator.NewGenerator(
			generator.WithApiKey(cfg.APIKey),
			generator.WithModel(cfg.Model),
		)
	} else {
		emb = mock.NewEmbedder()
		gen = &cannedGenerator{}
	}

	mem := hybrid.NewMemory(
		memory.WithCacher(cache),
		memory.WithFacts(factStore),
		memory.WithSummaries(factStore),
		memory.WithVector(vectorStore),
		memory.WithGenerator(gen),
	)

	fmt.Println("--- Hybrid Memory Demo ---")

	// 1. Populate the conversation window
	turns := []struct{ role, content string }{
		{cacher.RoleUser, "I'm planning a hiking trip to Patagonia in November."},
		{cacher.RoleAssistant, "Great choice! November is early summer there."},
		{cacher.RoleUser, "I prefer staying in small lodges over camping."},
		{cacher.RoleAssistant, "Noted, I'll keep lodge-friendly routes in mind."},
	}
	for _, turn := range turns {
		if err := mem.StoreMessage(ctx, cfg.User, cfg.Session, turn.role, turn.content, nil); err != nil {
			log.Fatalf("failed to store message: %v", err)
		}
	}
	fmt.Println("stored conversation turns")

	// 2. Store durable facts
	if _, err := mem.StoreFact(ctx, cfg.User, "accommodation", "small lodges", "preferences", 90, facts.SourceExplicit, nil); err != nil {
		log.Fatalf("failed to store fact: %v", err)
	}
	if _, err := mem.StoreFact(ctx, cfg.User, "destination", "Patagonia", "travel", 95, facts.SourceExplicit, nil); err != nil {
		log.Fatalf("failed to store fact: %v", err)
	}
	fmt.Println("stored facts")

	// 3. Ingest a document into the semantic tier
	doc := filepath.Join(os.TempDir(), "patagonia.txt")
	if err := os.WriteFile(doc, []byte(
		"Torres del Paine is best visited between November and March. "+
			"The W trek takes about five days. Refugios along the route offer beds and meals, "+
			"so camping gear is optional for most hikers.",
	), 0o644); err != nil {
		log.Fatalf("failed to write sample document: %v", err)
	}
	defer os.Remove(doc)

	pipeline := rag.NewPipeline(
		rag.WithLoader(file.NewLoader()),
		rag.WithEmbedder(emb),
		rag.WithStorer(vectorStore),
		rag.WithGenerator(gen),
		rag.WithMinChunkSize(1),
	)

	ingested, err := pipeline.Ingest(ctx, cfg.User, doc, map[string]any{"topic": "travel"})
	if err != nil {
		log.Fatalf("failed to ingest: %v", err)
	}
	fmt.Printf("ingested document: %d chunks, %d words\n", ingested.ChunksStored, ingested.TotalWords)

	// 4. Answer a question against the ingested content
	answer, err := pipeline.GenerateAnswer(ctx, cfg.User, "Do I need camping gear for the W trek?", 3, 0.1)
	if err != nil {
		log.Fatalf("failed to answer: %v", err)
	}
	fmt.Printf("answer: %s (%d sources)\n", answer.Answer, len(answer.Sources))

	// 5. Assemble the full context the way a conversation turn would
	queryEmbedding, err := emb.Embed(ctx, "lodging preferences for the trip")
	if err != nil {
		log.Fatalf("failed to embed query: %v", err)
	}

	full, err := mem.FullContext(ctx, cfg.User, cfg.Session, queryEmbedding,
		memory.FullContextWithSemanticThreshold(0.1),
	)
	if err != nil {
		log.Fatalf("failed to assemble context: %v", err)
	}
	fmt.Printf("full context: %d messages, %d facts, %d semantic memories\n",
		len(full.Conversation), len(full.Facts), len(full.SemanticMemories))

	// 6. Summarize and archive the session
	summary, err := mem.SummarizeSession(ctx, cfg.User, cfg.Session)
	if err != nil {
		log.Fatalf("failed to summarize: %v", err)
	}
	fmt.Printf("summary: %s (topics: %v)\n", summary.Summary, summary.Topics)

	// 7. Honor an erasure request for vector content
	deleted, err := mem.DeleteUserData(ctx, cfg.User)
	if err != nil {
		log.Fatalf("failed to delete user data: %v", err)
	}
	fmt.Printf("deleted %d semantic entries\n", deleted)
}
