package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/childsafe-za/childsafe-rag/common/httpx"
	"github.com/childsafe-za/childsafe-rag/config"
	"github.com/childsafe-za/childsafe-rag/vectordb"
)

func TestSelect(t *testing.T) {
	all, err := Select(AllReports)
	require.NoError(t, err)
	assert.Len(t, all, 9)
	assert.Equal(t, "2005-2006", all[0].Year)
	assert.Equal(t, "2022-2023", all[len(all)-1].Year)

	one, err := Select("2019-2020")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "2019-2020.pdf", one[0].FileName())

	_, err = Select("1999")
	assert.ErrorIs(t, err, ErrUnknownReport)
}

func TestReportFileName(t *testing.T) {
	r, err := Select("2022-2023")
	require.NoError(t, err)
	assert.Equal(t, "2022-2023.pptx", r[0].FileName())
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.pdf" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("%PDF-1.4 report"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	d := NewDownloader(httpx.NewFromConfig(nil), dir)
	d.Resolve = func(which string) ([]Report, error) {
		switch which {
		case "2011":
			return []Report{{Year: "2011", URL: srv.URL + "/annual_report2012.pdf"}}, nil
		case "broken":
			return []Report{{Year: "broken", URL: srv.URL + "/missing.pdf"}}, nil
		}
		return Select(which)
	}

	paths, err := d.Download(context.Background(), "2011")
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "2011.pdf")}, paths)
	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 report", string(data))

	_, err = d.Download(context.Background(), "broken")
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "broken.pdf"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = d.Download(context.Background(), "1999")
	assert.ErrorIs(t, err, ErrUnknownReport)
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) GetEmbedding(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, f.err
}

func (f *fakeEmbedder) GetEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) GetProviderType() string { return "fake" }

type fakeIndex struct {
	resets  int
	records []vectordb.Record
}

func (f *fakeIndex) Reset(context.Context) error {
	f.resets++
	f.records = nil
	return nil
}

func (f *fakeIndex) Add(_ context.Context, records []vectordb.Record) error {
	f.records = append(f.records, records...)
	return nil
}

func (f *fakeIndex) Count(context.Context) (int, error) { return len(f.records), nil }

func writePDFs(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("stub"), 0o644))
	}
	return dir
}

func TestIndexerRun(t *testing.T) {
	long := strings.Repeat("ChildSafe runs road safety programmes for children. ", 4)
	pages := map[string][]string{
		"2019-2020.pdf": {"cover", long, "", long + "\n\n" + long},
		"2011.pdf":      {long},
	}
	extract := func(path string) ([]string, error) {
		return pages[filepath.Base(path)], nil
	}

	t.Run("Should chunk, embed and add records", func(t *testing.T) {
		dir := writePDFs(t, "2019-2020.pdf", "2011.pdf", "notes.txt")
		store := &fakeIndex{}
		emb := &fakeEmbedder{}
		ix := NewIndexer(emb, store, config.SplitterConfig{ChunkSize: 800, ChunkOverlap: 50}, 50)
		ix.Extract = extract

		stats, err := ix.Run(context.Background(), dir)
		require.NoError(t, err)
		assert.Equal(t, 1, store.resets)
		assert.Equal(t, 2, stats.Files)
		assert.Equal(t, 5, stats.Pages)
		assert.Equal(t, len(store.records), stats.Chunks)
		assert.Equal(t, stats.Chunks, stats.Total)

		ids := make([]string, len(store.records))
		for i, r := range store.records {
			ids[i] = r.ID
			assert.NotEmpty(t, r.Embedding)
			assert.GreaterOrEqual(t, len(strings.TrimSpace(r.Document)), 50)
		}
		assert.Contains(t, ids, "2011-0-0")
		assert.Contains(t, ids, "2019-2020-1-0")
		assert.NotContains(t, ids, "2019-2020-0-0")

		first := store.records[0]
		assert.Equal(t, "2011", first.Metadata["report_year"])
		assert.Equal(t, 0, first.Metadata["page"])
		assert.Equal(t, 0, first.Metadata["chunk_index"])
		assert.Equal(t, len([]rune(first.Document)), first.Metadata["chunk_size"])
	})

	t.Run("Should batch embedding calls", func(t *testing.T) {
		dir := writePDFs(t, "2011.pdf")
		emb := &fakeEmbedder{}
		ix := NewIndexer(emb, &fakeIndex{}, config.SplitterConfig{ChunkSize: 60, ChunkOverlap: 0}, 10)
		ix.Extract = extract
		ix.BatchSize = 1

		stats, err := ix.Run(context.Background(), dir)
		require.NoError(t, err)
		assert.Greater(t, stats.Chunks, 1)
		assert.Equal(t, stats.Chunks, emb.calls)
	})

	t.Run("Should fail on embedding errors", func(t *testing.T) {
		dir := writePDFs(t, "2011.pdf")
		ix := NewIndexer(&fakeEmbedder{err: errors.New("quota")}, &fakeIndex{}, config.SplitterConfig{}, 0)
		ix.Extract = extract
		_, err := ix.Run(context.Background(), dir)
		assert.ErrorContains(t, err, "quota")
	})
}

func TestNewSplitterDefaults(t *testing.T) {
	s := NewSplitter(config.SplitterConfig{})
	chunks, err := s.SplitText(strings.Repeat("a", 2000))
	require.NoError(t, err)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 800)
	}
}
