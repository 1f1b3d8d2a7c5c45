package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/siherrmann/paperqa"
	"github.com/siherrmann/paperqa/helper"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const kjvRepoURL = "https://raw.githubusercontent.com/arleym/kjv-markdown/master"

// List of KJV books to download
var kjvBooks = []string{
	"01 - Genesis - KJV.md",
	"02 - Exodus - KJV.md",
	// "03 - Leviticus - KJV.md", "04 - Numbers - KJV.md",
	// "05 - Deuteronomy - KJV.md", "06 - Joshua - KJV.md",
}

// startPostgresContainer starts a PostgreSQL container with the data
// directory mounted from ./data, so the library survives between runs.
func startPostgresContainer() (func(ctx context.Context, opts ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	dataDir := "./data"
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create data directory: %w", err)
	}
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get absolute path for data directory: %w", err)
	}

	// An initialized cluster logs the ready message once instead of twice
	waitOccurrences := 2
	if _, err := os.Stat(filepath.Join(absDataDir, "PG_VERSION")); err == nil {
		waitOccurrences = 1
		fmt.Printf("Using existing persistent database in: %s\n", absDataDir)
	} else {
		fmt.Printf("Creating new persistent database in: %s\n", absDataDir)
	}

	pgContainer, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("database"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(waitOccurrences),
		),
		testcontainers.WithHostConfigModifier(func(hc *container.HostConfig) {
			hc.Mounts = append(hc.Mounts, mount.Mount{
				Type:   mount.TypeBind,
				Source: absDataDir,
				Target: "/var/lib/postgresql/data",
			})
		}),
	)
	if err != nil {
		return nil, "", fmt.Errorf("error starting postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", fmt.Errorf("error getting connection string: %w", err)
	}

	u, err := url.Parse(connStr)
	if err != nil {
		return nil, "", fmt.Errorf("error parsing connection string: %v", err)
	}

	return pgContainer.Terminate, u.Port(), nil
}

func downloadBook(bookName string, outputDir string) (string, error) {
	downloadURL := fmt.Sprintf("%s/%s", kjvRepoURL, url.PathEscape(bookName))
	resp, err := http.Get(downloadURL)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", bookName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download %s: status %d", bookName, resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", bookName, err)
	}

	outputPath := filepath.Join(outputDir, bookName)
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", bookName, err)
	}
	return outputPath, nil
}

func main() {
	ctx := context.Background()

	teardown, dbPort, err := startPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	// Local embeddings and keywords, answers from a local Ollama
	config := helper.DefaultConfiguration()
	config.Database = &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}
	config.EmbeddingProvider = helper.ProviderHugot
	config.GenerationProvider = helper.ProviderOllama
	config.KeywordExtractor = helper.KeywordExtractorNER
	config.ProviderMaxRetries = 2
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	p, err := paperqa.NewPaperQA(ctx, config)
	if err != nil {
		log.Fatalf("Failed to create paperqa: %v", err)
	}
	defer p.Close()

	existing, err := existingTitles(ctx, p)
	if err != nil {
		log.Printf("Warning: could not check existing papers: %v", err)
		existing = map[string]bool{}
	}
	if len(existing) > 0 {
		fmt.Printf("Found %d existing papers in the library\n", len(existing))
	}

	tmpDir, err := os.MkdirTemp("", "kjv-books-*")
	if err != nil {
		log.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	totalChunks, processed, skipped := 0, 0, 0
	for i, bookName := range kjvBooks {
		if existing[bookName] {
			fmt.Printf("Skipping %s (%d/%d) - already ingested\n", bookName, i+1, len(kjvBooks))
			skipped++
			continue
		}

		fmt.Printf("Downloading %s (%d/%d)...\n", bookName, i+1, len(kjvBooks))
		bookPath, err := downloadBook(bookName, tmpDir)
		if err != nil {
			log.Printf("Warning: %v, skipping...", err)
			continue
		}

		manifest, err := p.IngestFile(ctx, bookPath)
		if err != nil {
			log.Printf("Warning: failed to ingest %s: %v, skipping...", bookName, err)
			continue
		}

		fmt.Printf("  Inserted %d chunks from %s\n", manifest.ChunkCount, bookName)
		fmt.Printf("  Keywords: %s\n", strings.Join(manifest.Keywords, ", "))
		totalChunks += manifest.ChunkCount
		processed++
	}

	fmt.Printf("\nKJV library status:\n")
	fmt.Printf("  - Ingested: %d books (%d chunks)\n", processed, totalChunks)
	fmt.Printf("  - Skipped (already in library): %d books\n", skipped)
	fmt.Printf("  - Total: %d books\n\n", len(kjvBooks))

	question := "What did Moses do on the mountain?"
	fmt.Printf("Asking: %q\n", question)
	fmt.Println(strings.Repeat("=", 20))

	hits, err := p.Search(ctx, question, 5)
	if err != nil {
		log.Fatalf("Search error: %v", err)
	}
	for i, hit := range hits {
		fmt.Printf("\n[%d] Distance: %.4f | Chunk: %s\n", i+1, hit.Distance, hit.ID)
		fmt.Printf("    %s\n", strings.ReplaceAll(truncate(hit.Text, 300), "\n", "\n    "))
	}

	answer, err := p.Query(ctx, question, 5)
	if err != nil {
		log.Fatalf("Answer error: %v", err)
	}
	fmt.Println("\n" + strings.Repeat("=", 20))
	fmt.Println(answer.Answer)
}

// existingTitles returns the titles of all papers already in the library.
func existingTitles(ctx context.Context, p *paperqa.PaperQA) (map[string]bool, error) {
	papers, err := p.ListPapers(ctx, nil, 1000)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers: %w", err)
	}

	titles := make(map[string]bool)
	for _, paper := range papers {
		titles[paper.Title] = true
	}
	return titles, nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
