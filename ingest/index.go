package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/childsafe-za/childsafe-rag/common/logger"
	"github.com/childsafe-za/childsafe-rag/config"
	"github.com/childsafe-za/childsafe-rag/embedding"
	"github.com/childsafe-za/childsafe-rag/vectordb"
)

const (
	defaultMinChunkChars = 50
	defaultBatchSize     = 64
)

// Separators is the split hierarchy used for report pages.
var Separators = []string{"\n\n", "\n", ".", " ", ""}

// PageExtractor returns the text of every page of a document, in order.
type PageExtractor func(path string) ([]string, error)

// Stats summarises one indexing run.
type Stats struct {
	Files  int `json:"files"`
	Pages  int `json:"pages"`
	Chunks int `json:"chunks"`
	// Total is the collection size after the run, or -1 when unknown.
	Total int `json:"total"`
}

// Indexer rebuilds the report collection from the PDFs in a directory.
type Indexer struct {
	Embed         embedding.Provider
	Store         vectordb.Indexer
	Splitter      textsplitter.TextSplitter
	Extract       PageExtractor
	MinChunkChars int
	BatchSize     int
}

// NewIndexer builds an indexer with the recursive character splitter.
func NewIndexer(embed embedding.Provider, store vectordb.Indexer, split config.SplitterConfig, minChars int) *Indexer {
	return &Indexer{
		Embed:         embed,
		Store:         store,
		Splitter:      NewSplitter(split),
		Extract:       ExtractPDFPages,
		MinChunkChars: minChars,
	}
}

// NewSplitter returns a recursive character splitter measuring characters.
func NewSplitter(cfg config.SplitterConfig) textsplitter.TextSplitter {
	size, overlap := cfg.ChunkSize, cfg.ChunkOverlap
	if size <= 0 {
		size = 800
	}
	if overlap < 0 || overlap >= size {
		overlap = 50
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(Separators),
		textsplitter.WithLenFunc(utf8.RuneCountInString),
	)
}

// Run resets the collection and indexes every *.pdf in dir. The report year
// is taken from the file name.
func (ix *Indexer) Run(ctx context.Context, dir string) (*Stats, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.pdf"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	if err := ix.Store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset collection: %w", err)
	}

	stats := &Stats{Total: -1}
	for _, f := range files {
		logger.Infof("ingest: processing %s", f)
		records, pages, err := ix.chunkFile(f)
		if err != nil {
			return stats, err
		}
		stats.Files++
		stats.Pages += pages
		if err := ix.store(ctx, records); err != nil {
			return stats, fmt.Errorf("index %s: %w", f, err)
		}
		stats.Chunks += len(records)
	}

	if c, ok := ix.Store.(interface {
		Count(ctx context.Context) (int, error)
	}); ok {
		if n, err := c.Count(ctx); err == nil {
			stats.Total = n
		}
	}
	logger.Infof("ingest: %d chunks from %d files, collection size %d", stats.Chunks, stats.Files, stats.Total)
	return stats, nil
}

func (ix *Indexer) minChars() int {
	if ix.MinChunkChars <= 0 {
		return defaultMinChunkChars
	}
	return ix.MinChunkChars
}

// chunkFile splits a report into records. Pages and chunks whose trimmed
// text is shorter than the minimum are skipped. Page numbers are 0-based.
func (ix *Indexer) chunkFile(path string) ([]vectordb.Record, int, error) {
	pages, err := ix.Extract(path)
	if err != nil {
		return nil, 0, fmt.Errorf("extract %s: %w", path, err)
	}
	year := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	minLen := ix.minChars()

	var records []vectordb.Record
	for i, text := range pages {
		if utf8.RuneCountInString(strings.TrimSpace(text)) < minLen {
			continue
		}
		chunks, err := ix.Splitter.SplitText(text)
		if err != nil {
			return nil, 0, fmt.Errorf("split %s page %d: %w", path, i, err)
		}
		for j, chunk := range chunks {
			if utf8.RuneCountInString(strings.TrimSpace(chunk)) < minLen {
				continue
			}
			records = append(records, vectordb.Record{
				ID:       fmt.Sprintf("%s-%d-%d", year, i, j),
				Document: chunk,
				Metadata: map[string]any{
					"source":      path,
					"report_year": year,
					"page":        i,
					"chunk_size":  utf8.RuneCountInString(chunk),
					"chunk_index": j,
				},
			})
		}
	}
	return records, len(pages), nil
}

func (ix *Indexer) store(ctx context.Context, records []vectordb.Record) error {
	batch := ix.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	for start := 0; start < len(records); start += batch {
		end := start + batch
		if end > len(records) {
			end = len(records)
		}
		part := records[start:end]
		texts := make([]string, len(part))
		for i, r := range part {
			texts[i] = r.Document
		}
		vectors, err := ix.Embed.GetEmbeddings(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}
		if len(vectors) != len(part) {
			return fmt.Errorf("embed: got %d vectors for %d chunks", len(vectors), len(part))
		}
		for i := range part {
			part[i].Embedding = vectors[i]
		}
		if err := ix.Store.Add(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

// ExtractPDFPages reads the plain text of each page.
func ExtractPDFPages(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			logger.Warnf("ingest: %s page %d: %v", path, i-1, err)
			text = ""
		}
		pages = append(pages, text)
	}
	return pages, nil
}
