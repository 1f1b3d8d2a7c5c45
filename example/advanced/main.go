package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/siherrmann/paperqa"
	"github.com/siherrmann/paperqa/helper"
)

const sampleContent1 = `Graph databases are designed to store and query data with complex relationships.
They use nodes to represent entities and edges to represent relationships between them.

PostgreSQL with the pgvector extension can store embeddings next to relational data.
HNSW and IVFFlat indexes make nearest neighbor search fast on large tables.`

const sampleContent2 = `Machine learning is transforming how we process and retrieve information.

Vector embeddings capture the semantic meaning of text, enabling similarity-based search.
Retrieval augmented generation answers questions from retrieved passages and cites them.`

func main() {
	ctx := context.Background()

	if os.Getenv("OPENAI_API_KEY") == "" {
		log.Fatal("OPENAI_API_KEY must be set")
	}

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	os.Setenv("DB_HOST", "localhost")
	os.Setenv("DB_PORT", dbPort)
	os.Setenv("DB_DATABASE", "database")
	os.Setenv("DB_USERNAME", "user")
	os.Setenv("DB_PASSWORD", "password")

	// OpenAI embeddings and answers, keywords from named entities
	os.Setenv("EMBEDDING_PROVIDER", helper.ProviderOpenAI)
	os.Setenv("GENERATION_PROVIDER", helper.ProviderOpenAI)
	os.Setenv("KEYWORD_EXTRACTOR", helper.KeywordExtractorNER)
	os.Setenv("PROVIDER_MAX_RETRIES", "3")

	config, err := helper.NewConfiguration("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	p, err := paperqa.NewPaperQA(ctx, config)
	if err != nil {
		log.Fatalf("Failed to create paperqa: %v", err)
	}
	defer p.Close()

	// Ingest both documents
	for name, content := range map[string]string{
		"graph-databases.txt":  sampleContent1,
		"machine-learning.txt": sampleContent2,
	} {
		manifest, err := p.Ingest(ctx, name, []byte(content))
		if err != nil {
			log.Fatalf("Failed to ingest %s: %v", name, err)
		}
		fmt.Printf("Ingested %s as paper %d (%d chunks), keywords: %v\n", name, manifest.PaperID, manifest.ChunkCount, manifest.Keywords)
	}

	// Switch the vector index to IVFFlat
	err = p.ChangeIndexType(ctx, "ivfflat", map[string]interface{}{"lists": 10})
	if err != nil {
		log.Fatalf("Failed to change index type: %v", err)
	}

	// Nearest passages without generation
	hits, err := p.Search(ctx, "How are embeddings stored?", 3)
	if err != nil {
		log.Fatalf("Failed to search: %v", err)
	}
	fmt.Println("\nSearch results:")
	for i, hit := range hits {
		fmt.Printf("  %d. %s (distance %.4f)\n", i+1, hit.ID, hit.Distance)
	}

	// Answer with citations
	answer, err := p.Query(ctx, "Which database features support retrieval augmented generation?", 4)
	if err != nil {
		log.Fatalf("Failed to answer: %v", err)
	}
	fmt.Printf("\nAnswer:\n%s\n", answer.Answer)
	for _, c := range answer.Citations {
		fmt.Printf("  [%d] %s\n", c.Index, c.ID)
	}

	// Library analytics
	keywords, err := p.KeywordTotals(ctx, 10)
	if err != nil {
		log.Fatalf("Failed to get keywords: %v", err)
	}
	fmt.Println("\nTop keywords:")
	for _, k := range keywords {
		fmt.Printf("  %-25s %d\n", k.Keyword, k.Weight)
	}

	analytics, err := p.Analytics(ctx)
	if err != nil {
		log.Fatalf("Failed to get analytics: %v", err)
	}
	fmt.Printf("\nLibrary size: %d, embeddings: %d, chats: %d\n", analytics.LibrarySize, analytics.EmbeddingsCount, analytics.ChatCount)

	// Rebuild and delete the first paper
	papers, err := p.ListPapers(ctx, nil, 0)
	if err != nil {
		log.Fatalf("Failed to list papers: %v", err)
	}
	oldest := papers[len(papers)-1]

	result, err := p.ReembedPaper(ctx, oldest.ID)
	if err != nil {
		log.Fatalf("Failed to re-embed paper: %v", err)
	}
	fmt.Printf("\nRebuilt %d embeddings of %s\n", result.UpsertedCount, oldest.Title)

	if err := p.DeletePaper(ctx, oldest.ID); err != nil {
		log.Fatalf("Failed to delete paper: %v", err)
	}
	fmt.Printf("Deleted %s\n", oldest.Title)

	fmt.Println("\nAdvanced example completed successfully!")
}
