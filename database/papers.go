package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"
	"github.com/siherrmann/paperqa/helper"
	"github.com/siherrmann/paperqa/model"
	loadSql "github.com/siherrmann/paperqa/sql"
)

// PapersDBHandlerFunctions defines the interface for paper database operations.
type PapersDBHandlerFunctions interface {
	InsertPaper(ctx context.Context, paper *model.Paper) error
	SelectPaper(ctx context.Context, id int64) (*model.Paper, error)
	SelectPaperChunks(ctx context.Context, paperID int64) ([]*model.PaperChunk, error)
	SelectPaperKeywords(ctx context.Context, paperID int64) ([]*model.Keyword, error)
	SelectAllPapers(ctx context.Context, lastCreatedAt *time.Time, limit int) ([]*model.PaperListItem, error)
	DeletePaper(ctx context.Context, id int64) (string, error)
	SelectKeywordTotals(ctx context.Context, limit int) ([]model.KeywordWeight, error)
	SelectSourceCounts(ctx context.Context, limit int) ([]model.ChartEntry, error)
	SelectPaperStats(ctx context.Context) (int, *time.Time, error)
}

// PapersDBHandler handles papers with their chunks and keywords.
type PapersDBHandler struct {
	db *helper.Database
}

// NewPapersDBHandler loads the paper functions and creates the tables.
// If force is true, it will reload the SQL functions even if they already exist.
func NewPapersDBHandler(db *helper.Database, force bool) (*PapersDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	papersDbHandler := &PapersDBHandler{
		db: db,
	}

	err := loadSql.LoadPapersSql(papersDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load papers sql", err)
	}

	err = papersDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized PapersDBHandler")

	return papersDbHandler, nil
}

// CreateTable creates the papers, paper_chunks and paper_keywords tables if missing.
func (h *PapersDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_papers();`)
	if err != nil {
		log.Printf("error initializing papers tables: %#v", err)
		return err
	}

	h.db.Logger.Info("Checked/created tables papers, paper_chunks, paper_keywords")

	return nil
}

// InsertPaper inserts the paper with all its chunks and keywords in one
// statement, either all rows become visible or none.
func (h *PapersDBHandler) InsertPaper(ctx context.Context, paper *model.Paper) error {
	chunkIDs := make([]string, 0, len(paper.Chunks))
	chunkTexts := make([]string, 0, len(paper.Chunks))
	for _, c := range paper.Chunks {
		chunkIDs = append(chunkIDs, c.ChunkID)
		chunkTexts = append(chunkTexts, c.Text)
	}

	keywords := make([]string, 0, len(paper.Keywords))
	weights := make([]int64, 0, len(paper.Keywords))
	for _, k := range paper.Keywords {
		keywords = append(keywords, k.Keyword)
		weights = append(weights, int64(k.Weight))
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM insert_paper($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		paper.Title,
		paper.Author,
		paper.Source,
		paper.EmbeddingID,
		paper.Summary,
		paper.Metadata,
		pq.Array(chunkIDs),
		pq.Array(chunkTexts),
		pq.Array(keywords),
		pq.Array(weights),
	)

	err := scanPaper(row, paper)
	if err != nil {
		return helper.NewError("scan", err)
	}

	for _, c := range paper.Chunks {
		c.PaperID = paper.ID
	}
	for _, k := range paper.Keywords {
		k.PaperID = paper.ID
	}

	return nil
}

// SelectPaper retrieves a paper by id.
func (h *PapersDBHandler) SelectPaper(ctx context.Context, id int64) (*model.Paper, error) {
	paper := &model.Paper{}
	row := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM select_paper($1)`,
		id,
	)

	err := scanPaper(row, paper)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, helper.Kind(helper.ErrNotFound, helper.NewError("select paper", fmt.Errorf("paper %d not found", id)))
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return paper, nil
}

// SelectPaperChunks retrieves the chunks of a paper in insertion order.
func (h *PapersDBHandler) SelectPaperChunks(ctx context.Context, paperID int64) ([]*model.PaperChunk, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_paper_chunks($1)`,
		paperID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.PaperChunk
	for rows.Next() {
		chunk := &model.PaperChunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.PaperID,
			&chunk.ChunkID,
			&chunk.Text,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// SelectPaperKeywords retrieves the keywords of a paper in insertion order.
func (h *PapersDBHandler) SelectPaperKeywords(ctx context.Context, paperID int64) ([]*model.Keyword, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_paper_keywords($1)`,
		paperID,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var keywords []*model.Keyword
	for rows.Next() {
		keyword := &model.Keyword{}
		err := rows.Scan(
			&keyword.ID,
			&keyword.PaperID,
			&keyword.Keyword,
			&keyword.Weight,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		keywords = append(keywords, keyword)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return keywords, nil
}

// SelectAllPapers lists papers newest first. Pass the created_at of the last
// paper of a page to get the next one, a limit of 0 returns all papers.
func (h *PapersDBHandler) SelectAllPapers(ctx context.Context, lastCreatedAt *time.Time, limit int) ([]*model.PaperListItem, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_all_papers($1, $2)`,
		lastCreatedAt,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	papers := []*model.PaperListItem{}
	for rows.Next() {
		paper := &model.PaperListItem{}
		err := rows.Scan(
			&paper.ID,
			&paper.Title,
			&paper.Source,
			&paper.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		papers = append(papers, paper)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return papers, nil
}

// DeletePaper deletes a paper with its chunks and keywords and returns its embedding id.
func (h *PapersDBHandler) DeletePaper(ctx context.Context, id int64) (string, error) {
	var embeddingID string
	err := h.db.Instance.QueryRowContext(
		ctx,
		`SELECT * FROM delete_paper($1)`,
		id,
	).Scan(&embeddingID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", helper.Kind(helper.ErrNotFound, helper.NewError("delete paper", fmt.Errorf("paper %d not found", id)))
	}
	if err != nil {
		return "", helper.NewError("scan", err)
	}

	return embeddingID, nil
}

// SelectKeywordTotals sums keyword weights over all papers, heaviest first.
func (h *PapersDBHandler) SelectKeywordTotals(ctx context.Context, limit int) ([]model.KeywordWeight, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_keyword_totals($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	totals := []model.KeywordWeight{}
	for rows.Next() {
		var total model.KeywordWeight
		err := rows.Scan(&total.Keyword, &total.Weight)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		totals = append(totals, total)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return totals, nil
}

// SelectSourceCounts counts papers per source, most frequent first.
func (h *PapersDBHandler) SelectSourceCounts(ctx context.Context, limit int) ([]model.ChartEntry, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		`SELECT * FROM select_source_counts($1)`,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	counts := []model.ChartEntry{}
	for rows.Next() {
		var entry model.ChartEntry
		err := rows.Scan(&entry.Label, &entry.Value)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		if entry.Label == "" {
			entry.Label = "Unknown"
		}

		counts = append(counts, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return counts, nil
}

// SelectPaperStats returns the number of papers and the creation time of
// the newest one, nil for an empty library.
func (h *PapersDBHandler) SelectPaperStats(ctx context.Context) (int, *time.Time, error) {
	var count int
	var newest sql.NullTime
	err := h.db.Instance.QueryRowContext(ctx, `SELECT * FROM select_paper_stats()`).Scan(&count, &newest)
	if err != nil {
		return 0, nil, helper.NewError("scan", err)
	}

	if !newest.Valid {
		return count, nil, nil
	}
	return count, &newest.Time, nil
}

func scanPaper(row *sql.Row, paper *model.Paper) error {
	return row.Scan(
		&paper.ID,
		&paper.Title,
		&paper.Author,
		&paper.Source,
		&paper.EmbeddingID,
		&paper.Summary,
		&paper.Metadata,
		&paper.CreatedAt,
	)
}
