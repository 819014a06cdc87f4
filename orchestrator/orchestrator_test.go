package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/childsafe-za/childsafe-rag/crag"
	"github.com/childsafe-za/childsafe-rag/llm"
	"github.com/childsafe-za/childsafe-rag/llm/llmtest"
	"github.com/childsafe-za/childsafe-rag/metrics"
	"github.com/childsafe-za/childsafe-rag/retriever"
	"github.com/childsafe-za/childsafe-rag/router"
	"github.com/childsafe-za/childsafe-rag/schema"
	"github.com/childsafe-za/childsafe-rag/synthesizer"
)

type fakeLocal struct {
	res    *retriever.LocalResult
	query  string
	k      int
	called bool
}

func (f *fakeLocal) Retrieve(_ context.Context, query string, k int) *retriever.LocalResult {
	f.called = true
	f.query = query
	f.k = k
	if f.res == nil {
		return &retriever.LocalResult{Query: query, Passages: []schema.Passage{}}
	}
	return f.res
}

type fakeWeb struct {
	articles []schema.Article
	notice   string
	called   bool
}

func (f *fakeWeb) BackendName() string { return "tavily" }

func (f *fakeWeb) Fetch(_ context.Context, _ string, _ int) ([]schema.Article, string) {
	f.called = true
	return f.articles, f.notice
}

type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (s *stateRecorder) record(_ string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, st)
}

func intPtr(n int) *int { return &n }

func newTestOrchestrator(lm *llmtest.Invoker, local *fakeLocal, web *fakeWeb, rec *stateRecorder) *Orchestrator {
	o := &Orchestrator{
		Router:    router.NewLLMRouter(lm),
		Rewriter:  crag.NewQueryRewriter(lm),
		Local:     local,
		Web:       web,
		Filter:    retriever.NewRelevanceFilter(nil),
		Synth:     synthesizer.New(lm, nil, 0),
		Validator: crag.NewValidator(),
		MaxTopK:   50,
	}
	if rec != nil {
		o.OnTransition = rec.record
	}
	return o
}

func reportPassages() []schema.Passage {
	return []schema.Passage{
		{ID: "2019-2020-5-0", Text: "ChildSafe trained scholar patrols.", Metadata: schema.PassageMetadata{ReportYear: "2019-2020", Page: intPtr(5)}},
		{ID: "2019-2020-12-0", Text: "Road safety campaigns reached schools.", Metadata: schema.PassageMetadata{ReportYear: "2019-2020", Page: intPtr(12)}},
		{ID: "2019-2020-20-1", Text: "Burn prevention programme.", Metadata: schema.PassageMetadata{ReportYear: "2019-2020", Page: intPtr(20)}},
	}
}

func TestRunLocal(t *testing.T) {
	t.Run("Should answer from reports and pass validation", func(t *testing.T) {
		lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{
			llm.KindIntent:  {Text: "local"},
			llm.KindRewrite: {Text: "ChildSafe South Africa organisation overview"},
			llm.KindAnswer:  {Text: "According to the 2019–2020 report (page 5), ChildSafe trains scholar patrols."},
		})
		local := &fakeLocal{res: &retriever.LocalResult{Passages: reportPassages(), TotalDocs: 120}}
		rec := &stateRecorder{}
		o := newTestOrchestrator(lm, local, &fakeWeb{}, rec)

		resp, err := o.Run(context.Background(), "who is childsafe", 3)
		require.NoError(t, err)

		out, ok := resp.(schema.LocalResponse)
		require.True(t, ok)
		assert.Equal(t, "who is childsafe", out.Query)
		assert.Equal(t, "ChildSafe South Africa organisation overview", out.Rewritten)
		assert.Contains(t, out.Answer, "2019–2020")
		assert.Len(t, out.Documents, 3)
		assert.Len(t, out.Metadatas, 3)
		assert.Empty(t, out.Message)

		assert.Equal(t, "ChildSafe South Africa organisation overview", local.query)
		assert.Equal(t, 3, local.k)
		assert.Equal(t, []State{
			StateStart, StateClassifying, StateRewriting, StateRetrievingLocal,
			StateSynthesizingLocal, StateValidating, StateDone,
		}, rec.states)
	})

	t.Run("Should skip synthesis when nothing is retrieved", func(t *testing.T) {
		lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{
			llm.KindIntent:  {Text: "local"},
			llm.KindRewrite: {Text: "rewritten"},
			llm.KindAnswer:  {Text: "should never be used"},
		})
		for _, k := range []int{0, -3, 5} {
			rec := &stateRecorder{}
			o := newTestOrchestrator(lm, &fakeLocal{}, &fakeWeb{}, rec)
			resp, err := o.Run(context.Background(), "annual budget", k)
			require.NoError(t, err)
			out := resp.(schema.LocalResponse)
			assert.Equal(t, schema.FallbackLocal, out.Answer)
			assert.Empty(t, out.Documents)
			assert.Empty(t, out.Metadatas)
			assert.NotContains(t, rec.states, StateSynthesizingLocal)
		}
		assert.Equal(t, 0, lm.Count(llm.KindAnswer))
	})

	t.Run("Should carry the store error as a message", func(t *testing.T) {
		lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{llm.KindIntent: {Text: "local"}})
		local := &fakeLocal{res: &retriever.LocalResult{Passages: []schema.Passage{}, Error: "No documents in collection"}}
		o := newTestOrchestrator(lm, local, &fakeWeb{}, nil)
		resp, err := o.Run(context.Background(), "who is childsafe", 5)
		require.NoError(t, err)
		out := resp.(schema.LocalResponse)
		assert.Equal(t, schema.FallbackLocal, out.Answer)
		assert.Equal(t, "No documents in collection", out.Message)
	})

	t.Run("Should retrieve with the original query when the rewrite fails", func(t *testing.T) {
		lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{
			llm.KindIntent:  {Text: "local"},
			llm.KindRewrite: {Err: errors.New("quota exceeded")},
			llm.KindAnswer:  {Text: "The 2019-2020 report describes ChildSafe."},
		})
		local := &fakeLocal{res: &retriever.LocalResult{Passages: reportPassages()}}
		o := newTestOrchestrator(lm, local, &fakeWeb{}, nil)
		resp, err := o.Run(context.Background(), "who is childsafe", 5)
		require.NoError(t, err)
		assert.Equal(t, "who is childsafe", local.query)
		assert.Equal(t, "who is childsafe", resp.(schema.LocalResponse).Rewritten)
	})

	t.Run("Should replace ungrounded answers", func(t *testing.T) {
		lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{
			llm.KindIntent: {Text: "local"},
			llm.KindAnswer: {Text: "I am not sure."},
		})
		local := &fakeLocal{res: &retriever.LocalResult{Passages: reportPassages()}}
		o := newTestOrchestrator(lm, local, &fakeWeb{}, nil)
		resp, err := o.Run(context.Background(), "who is childsafe", 5)
		require.NoError(t, err)
		out := resp.(schema.LocalResponse)
		assert.Equal(t, schema.FallbackLocal, out.Answer)
		assert.Len(t, out.Documents, 3)
	})

	t.Run("Should cap top_k", func(t *testing.T) {
		lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{llm.KindIntent: {Text: "local"}})
		local := &fakeLocal{}
		o := newTestOrchestrator(lm, local, &fakeWeb{}, nil)
		_, err := o.Run(context.Background(), "q", 500)
		require.NoError(t, err)
		assert.Equal(t, 50, local.k)
	})

	t.Run("Should propagate synthesis errors unchanged", func(t *testing.T) {
		boom := errors.New("model unavailable")
		lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{
			llm.KindIntent: {Text: "local"},
			llm.KindAnswer: {Err: boom},
		})
		local := &fakeLocal{res: &retriever.LocalResult{Passages: reportPassages()}}
		o := newTestOrchestrator(lm, local, &fakeWeb{}, nil)
		resp, err := o.Run(context.Background(), "who is childsafe", 5)
		assert.Nil(t, resp)
		assert.Equal(t, boom, err)
	})
}

func TestRunWeb(t *testing.T) {
	articles := []schema.Article{
		{Title: "ChildSafe launches holiday campaign", URL: "https://news.example/1", Snippet: "Road safety for children."},
		{Title: "Weather update", URL: "https://news.example/2", Snippet: "Rain expected in Cape Town."},
	}

	t.Run("Should summarise only relevant articles", func(t *testing.T) {
		lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{
			llm.KindIntent:  {Text: "web"},
			llm.KindSummary: {Text: "- ChildSafe launched a holiday road safety campaign."},
		})
		web := &fakeWeb{articles: articles}
		local := &fakeLocal{}
		rec := &stateRecorder{}
		o := newTestOrchestrator(lm, local, web, rec)

		resp, err := o.Run(context.Background(), "latest childsafe news", 5)
		require.NoError(t, err)
		out, ok := resp.(schema.WebResponse)
		require.True(t, ok)
		require.Len(t, out.Articles, 1)
		assert.Equal(t, "https://news.example/1", out.Articles[0].URL)
		assert.Contains(t, out.Answer, "ChildSafe")
		assert.False(t, local.called)
		assert.Equal(t, 0, lm.Count(llm.KindRewrite))
		assert.Equal(t, []State{
			StateStart, StateClassifying, StateRetrievingWeb, StateFiltering,
			StateSynthesizingWeb, StateValidating, StateDone,
		}, rec.states)
	})

	t.Run("Should fall back when no article is relevant", func(t *testing.T) {
		lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{
			llm.KindIntent:  {Text: "web"},
			llm.KindSummary: {Text: "should never be used"},
		})
		o := newTestOrchestrator(lm, &fakeLocal{}, &fakeWeb{articles: articles[1:]}, nil)
		resp, err := o.Run(context.Background(), "latest news", 5)
		require.NoError(t, err)
		out := resp.(schema.WebResponse)
		assert.Equal(t, schema.FallbackWeb, out.Answer)
		assert.Empty(t, out.Articles)
		assert.Equal(t, 0, lm.Count(llm.KindSummary))
	})

	t.Run("Should surface backend notices as a message", func(t *testing.T) {
		lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{llm.KindIntent: {Text: "web"}})
		web := &fakeWeb{articles: []schema.Article{}, notice: retriever.NoticeUnconfigured}
		o := newTestOrchestrator(lm, &fakeLocal{}, web, nil)
		var trace *metrics.QueryMetrics
		o.OnFinish = func(m *metrics.QueryMetrics) { trace = m }

		resp, err := o.Run(context.Background(), "latest news", 5)
		require.NoError(t, err)
		out := resp.(schema.WebResponse)
		assert.Equal(t, schema.FallbackWeb, out.Answer)
		assert.Equal(t, retriever.NoticeUnconfigured, out.Message)
		assert.Empty(t, out.Articles)

		require.NotNil(t, trace)
		assert.Equal(t, "tavily", trace.SearchBackend)
		assert.Equal(t, retriever.NoticeUnconfigured, trace.ProviderError)
		assert.Equal(t, ReasonSearchNotice, trace.FallbackReason)
	})

	t.Run("Should drop articles from ungrounded summaries", func(t *testing.T) {
		lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{
			llm.KindIntent:  {Text: "web"},
			llm.KindSummary: {Text: "There was a campaign."},
		})
		o := newTestOrchestrator(lm, &fakeLocal{}, &fakeWeb{articles: articles}, nil)
		resp, err := o.Run(context.Background(), "latest news", 5)
		require.NoError(t, err)
		out := resp.(schema.WebResponse)
		assert.Equal(t, schema.FallbackWeb, out.Answer)
		assert.Empty(t, out.Articles)
	})
}

func TestRunDefaultsToLocal(t *testing.T) {
	lm := llmtest.New(map[llm.PromptKind]llmtest.Reply{llm.KindIntent: {Err: errors.New("timeout")}})
	web := &fakeWeb{}
	local := &fakeLocal{}
	o := newTestOrchestrator(lm, local, web, nil)
	resp, err := o.Run(context.Background(), "latest news", 5)
	require.NoError(t, err)
	assert.Equal(t, schema.IntentLocal, resp.Mode())
	assert.True(t, local.called)
	assert.False(t, web.called)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "SYNTHESIZING_WEB", StateSynthesizingWeb.String())
	assert.Equal(t, "DONE", StateDone.String())
	assert.Equal(t, "UNKNOWN", State(99).String())
}
