// Command search is a local stand-in for the Tavily and SerpAPI endpoints.
// Point TAVILY_ENDPOINT at http://localhost:8082/search or SERPAPI_ENDPOINT at
// http://localhost:8082/search.json.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
)

type article struct {
	Title   string
	URL     string
	Content string
}

var corpus = []article{
	{"ChildSafe launches festive season road safety drive", "https://news.example/childsafe-festive", "ChildSafe South Africa urges parents to buckle up children during holiday travel."},
	{"Red Cross Children's Hospital trauma unit update", "https://news.example/trauma-unit", "The trauma unit treated fewer burn injuries this winter, ChildSafe data shows."},
	{"Cape Town weather outlook", "https://news.example/weather", "Rain is expected across the Western Cape."},
}

type tavilyReq struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

func limit(n int) []article {
	if n <= 0 || n > len(corpus) {
		return corpus
	}
	return corpus[:n]
}

func handleTavily(w http.ResponseWriter, r *http.Request) {
	var req tavilyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	results := []map[string]any{}
	if !strings.Contains(strings.ToLower(req.Query), "empty") {
		for _, a := range limit(req.MaxResults) {
			results = append(results, map[string]any{"title": a.Title, "url": a.URL, "content": a.Content, "score": 0.9})
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"query": req.Query, "results": results})
}

func handleSerpAPI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.Contains(strings.ToLower(q), "empty") {
		_ = json.NewEncoder(w).Encode(map[string]any{"search_metadata": map[string]any{"status": "Success"}})
		return
	}
	organic := []map[string]any{}
	for i, a := range corpus {
		organic = append(organic, map[string]any{"position": i + 1, "title": a.Title, "link": a.URL, "snippet": a.Content})
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"organic_results": organic})
}

func main() {
	addr := ":8082"
	if v := os.Getenv("SEARCH_MOCK_ADDR"); v != "" {
		addr = v
	}
	http.HandleFunc("/search", handleTavily)
	http.HandleFunc("/search.json", handleSerpAPI)
	log.Printf("Search mock listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, nil))
}
