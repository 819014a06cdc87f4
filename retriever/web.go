package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/childsafe-za/childsafe-rag/common/httpx"
	"github.com/childsafe-za/childsafe-rag/config"
	"github.com/childsafe-za/childsafe-rag/schema"
)

const (
	DefaultTavilyEndpoint  = "https://api.tavily.com/search"
	DefaultSerpAPIEndpoint = "https://serpapi.com/search"

	ModeTavily = "tavily"
	ModeGoogle = "google"
)

var (
	// ErrNoArticles is returned by Tavily when the result list is empty.
	ErrNoArticles = errors.New("no articles returned")
	// ErrNoOrganicResults is returned by SerpAPI when the payload has no organic_results.
	ErrNoOrganicResults = errors.New("no organic results in payload")
)

// Backend is one web search API.
type Backend interface {
	Name() string
	Search(ctx context.Context, query string, limit int) ([]schema.Article, error)
}

// TavilyBackend calls the Tavily search API.
type TavilyBackend struct {
	Endpoint string
	APIKey   string
	Client   *httpx.Client
}

func (b *TavilyBackend) Name() string { return ModeTavily }

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Content    string  `json:"content"`
		RawContent *string `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

func (b *TavilyBackend) Search(ctx context.Context, query string, limit int) ([]schema.Article, error) {
	body, err := json.Marshal(tavilyRequest{APIKey: b.APIKey, Query: query, MaxResults: limit})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var tr tavilyResponse
	if err := doJSON(b.Client, req, &tr); err != nil {
		return nil, err
	}
	if len(tr.Results) == 0 {
		return nil, ErrNoArticles
	}
	out := make([]schema.Article, 0, len(tr.Results))
	for _, r := range tr.Results {
		a := schema.Article{Title: r.Title, URL: r.URL, Snippet: r.Content, Score: r.Score}
		if r.RawContent != nil {
			a.RawContent = *r.RawContent
		}
		out = append(out, a)
	}
	return out, nil
}

// SerpAPIBackend calls Google search through SerpAPI.
type SerpAPIBackend struct {
	Endpoint string
	APIKey   string
	Client   *httpx.Client
}

func (b *SerpAPIBackend) Name() string { return ModeGoogle }

type serpAPIResponse struct {
	OrganicResults *[]struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

func (b *SerpAPIBackend) Search(ctx context.Context, query string, limit int) ([]schema.Article, error) {
	u, err := url.Parse(b.Endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("api_key", b.APIKey)
	q.Set("num", strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	var sr serpAPIResponse
	if err := doJSON(b.Client, req, &sr); err != nil {
		return nil, err
	}
	if sr.OrganicResults == nil {
		if sr.Error != "" {
			return nil, fmt.Errorf("serpapi: %s", sr.Error)
		}
		return nil, ErrNoOrganicResults
	}
	results := *sr.OrganicResults
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]schema.Article, 0, len(results))
	for _, r := range results {
		out = append(out, schema.Article{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return out, nil
}

func doJSON(client *httpx.Client, req *http.Request, out any) error {
	if client == nil {
		return errors.New("web http client not configured")
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("web search http status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// NewBackend selects the backend for cfg.Mode. It returns nil when the
// selected mode has no credentials; the other backend is never substituted.
func NewBackend(cfg config.SearchConfig, client *httpx.Client) Backend {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case ModeGoogle:
		if cfg.SerpAPIKey == "" {
			return nil
		}
		endpoint := cfg.SerpAPIEndpoint
		if endpoint == "" {
			endpoint = DefaultSerpAPIEndpoint
		}
		return &SerpAPIBackend{Endpoint: endpoint, APIKey: cfg.SerpAPIKey, Client: client}
	case ModeTavily:
		if cfg.TavilyAPIKey == "" {
			return nil
		}
		endpoint := cfg.TavilyEndpoint
		if endpoint == "" {
			endpoint = DefaultTavilyEndpoint
		}
		return &TavilyBackend{Endpoint: endpoint, APIKey: cfg.TavilyAPIKey, Client: client}
	default:
		return nil
	}
}
