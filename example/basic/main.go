package main

import (
	"context"
	"fmt"
	"log"

	"github.com/siherrmann/paperqa"
	"github.com/siherrmann/paperqa/helper"
)

const sampleContent = `# Graph Neural Networks

Graph neural networks learn representations of nodes, edges and whole graphs.
They are used for molecules, social networks and recommendation systems.

Message passing is the core operation. In every layer each node aggregates the
features of its neighbors and combines them with its own features.

Pooling layers turn the node representations into a single vector for the
whole graph, which is then used for graph classification.`

func main() {
	ctx := context.Background()

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(ctx)

	// Local embeddings with hugot, answers from a local Ollama
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
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	p, err := paperqa.NewPaperQA(ctx, config)
	if err != nil {
		log.Fatalf("Failed to create paperqa: %v", err)
	}
	defer p.Close()

	fmt.Println("Ingesting document...")
	manifest, err := p.Ingest(ctx, "gnn.md", []byte(sampleContent))
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Paper %d with document id %s\n", manifest.PaperID, manifest.DocumentID)
	fmt.Printf("Inserted %d chunks\n", manifest.ChunkCount)
	fmt.Printf("Summary: %s\n", manifest.Summary)

	question := "What happens in a message passing layer?"
	fmt.Printf("\nAsking: %s\n", question)

	answer, err := p.Query(ctx, question, 3)
	if err != nil {
		log.Fatalf("Failed to answer: %v", err)
	}

	fmt.Printf("\n%s\n", answer.Answer)
	for _, c := range answer.Citations {
		fmt.Printf("\n--- [%d] %s ---\n%s\n", c.Index, c.ID, c.Snippet)
	}

	fmt.Println("\nBasic example completed successfully!")
}
