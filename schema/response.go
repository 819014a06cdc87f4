package schema

import (
	"encoding/json"
	"fmt"
)

// Response is the result of one query. It is a closed union: the only
// implementations are LocalResponse and WebResponse, and the JSON "mode"
// tag selects the payload shape.
type Response interface {
	Mode() Intent
	AnswerText() string
	isResponse()
}

// LocalResponse is produced by the report-grounded branch.
type LocalResponse struct {
	Query     string
	Answer    string
	Rewritten string
	Documents []string
	Metadatas []PassageMetadata
	// Message explains a degraded retrieval (empty or unreachable store).
	Message string
}

// WebResponse is produced by the web search branch.
type WebResponse struct {
	Query    string
	Answer   string
	Articles []Article
	// Message explains a degraded search (missing credentials, backend error).
	Message string
}

func (LocalResponse) Mode() Intent          { return IntentLocal }
func (r LocalResponse) AnswerText() string { return r.Answer }
func (LocalResponse) isResponse()          {}

func (WebResponse) Mode() Intent          { return IntentWeb }
func (r WebResponse) AnswerText() string { return r.Answer }
func (WebResponse) isResponse()          {}

type localWire struct {
	Query     string            `json:"query"`
	Mode      Intent            `json:"mode"`
	Answer    string            `json:"answer"`
	Rewritten string            `json:"rewritten,omitempty"`
	Documents []string          `json:"documents"`
	Metadatas []PassageMetadata `json:"metadatas"`
	Message   string            `json:"message,omitempty"`
}

type webWire struct {
	Query    string    `json:"query"`
	Mode     Intent    `json:"mode"`
	Answer   string    `json:"answer"`
	Articles []Article `json:"articles"`
	Message  string    `json:"message,omitempty"`
}

func (r LocalResponse) MarshalJSON() ([]byte, error) {
	w := localWire{
		Query:     r.Query,
		Mode:      IntentLocal,
		Answer:    r.Answer,
		Rewritten: r.Rewritten,
		Documents: r.Documents,
		Metadatas: r.Metadatas,
		Message:   r.Message,
	}
	if w.Documents == nil {
		w.Documents = []string{}
	}
	if w.Metadatas == nil {
		w.Metadatas = []PassageMetadata{}
	}
	return json.Marshal(w)
}

func (r WebResponse) MarshalJSON() ([]byte, error) {
	w := webWire{
		Query:    r.Query,
		Mode:     IntentWeb,
		Answer:   r.Answer,
		Articles: r.Articles,
		Message:  r.Message,
	}
	if w.Articles == nil {
		w.Articles = []Article{}
	}
	return json.Marshal(w)
}

// DecodeResponse parses a JSON response, dispatching on its mode tag.
func DecodeResponse(data []byte) (Response, error) {
	var tag struct {
		Mode Intent `json:"mode"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}
	switch tag.Mode {
	case IntentLocal:
		var w localWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return LocalResponse{
			Query:     w.Query,
			Answer:    w.Answer,
			Rewritten: w.Rewritten,
			Documents: w.Documents,
			Metadatas: w.Metadatas,
			Message:   w.Message,
		}, nil
	case IntentWeb:
		var w webWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return WebResponse{
			Query:    w.Query,
			Answer:   w.Answer,
			Articles: w.Articles,
			Message:  w.Message,
		}, nil
	default:
		return nil, fmt.Errorf("schema: unknown response mode %q", tag.Mode)
	}
}
