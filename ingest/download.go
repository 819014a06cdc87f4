package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/childsafe-za/childsafe-rag/common/httpx"
	"github.com/childsafe-za/childsafe-rag/common/logger"
)

// Downloader fetches report files into DataDir.
type Downloader struct {
	Client  *httpx.Client
	DataDir string
	// Resolve maps the selector to reports; nil uses the built-in registry.
	Resolve func(which string) ([]Report, error)
}

func NewDownloader(client *httpx.Client, dataDir string) *Downloader {
	return &Downloader{Client: client, DataDir: dataDir}
}

// Download fetches "all" reports or the one for the given year and returns
// the written paths. It stops at the first failure.
func (d *Downloader) Download(ctx context.Context, which string) ([]string, error) {
	resolve := d.Resolve
	if resolve == nil {
		resolve = Select
	}
	reports, err := resolve(which)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	paths := make([]string, 0, len(reports))
	for _, r := range reports {
		out := filepath.Join(d.DataDir, r.FileName())
		logger.Infof("ingest: downloading %s -> %s", r.Year, out)
		if err := d.fetch(ctx, r.URL, out); err != nil {
			return paths, fmt.Errorf("download %s: %w", r.Year, err)
		}
		paths = append(paths, out)
	}
	return paths, nil
}

func (d *Downloader) fetch(ctx context.Context, src, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
