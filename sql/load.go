package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed papers.sql
var papersSQL string

//go:embed embeddings.sql
var embeddingsSQL string

// Function lists for verification
var PapersFunctions = []string{
	"init_papers",
	"insert_paper",
	"select_paper",
	"select_paper_chunks",
	"select_paper_keywords",
	"select_all_papers",
	"delete_paper",
	"select_keyword_totals",
	"select_source_counts",
	"select_paper_stats",
}

var EmbeddingsFunctions = []string{
	"init_embeddings",
	"upsert_embedding",
	"select_embedding",
	"select_embeddings_by_distance",
	"count_embeddings",
	"delete_embeddings_by_document",
}

// Init initializes the pgvector extension.
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing init SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadPapersSql loads the paper, chunk and keyword functions.
func LoadPapersSql(db *sql.DB, force bool) error {
	return loadSql(db, "papers", papersSQL, PapersFunctions, force)
}

// LoadEmbeddingsSql loads the embedding index functions.
func LoadEmbeddingsSql(db *sql.DB, force bool) error {
	return loadSql(db, "embeddings", embeddingsSQL, EmbeddingsFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadPapersSql(db, force); err != nil {
		return err
	}
	return LoadEmbeddingsSql(db, force)
}

// loadSql executes the file unless force is false and all its functions exist.
func loadSql(db *sql.DB, name string, content string, functions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, functions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(content)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, functions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required %s SQL functions were created", name)
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	allExist := len(sqlFunctions) > 0
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
