package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/childsafe-za/childsafe-rag/common/logger"
	"github.com/childsafe-za/childsafe-rag/crag"
	"github.com/childsafe-za/childsafe-rag/metrics"
	"github.com/childsafe-za/childsafe-rag/retriever"
	"github.com/childsafe-za/childsafe-rag/router"
	"github.com/childsafe-za/childsafe-rag/schema"
	"github.com/childsafe-za/childsafe-rag/synthesizer"
)

// Fallback reasons recorded in the query trace.
const (
	ReasonNoPassages   = "no_passages"
	ReasonNoArticles   = "no_relevant_articles"
	ReasonSearchNotice = "search_notice"
	ReasonUngrounded   = "ungrounded"
)

const defaultMaxWebResults = 5

// Orchestrator wires the query pipeline stages. It holds no per-query
// state, so one instance may serve concurrent callers.
type Orchestrator struct {
	Router    router.Router
	Rewriter  crag.Rewriter
	Local     retriever.PassageRetriever
	Web       retriever.ArticleFetcher
	Filter    *retriever.RelevanceFilter
	Synth     *synthesizer.Synthesizer
	Validator *crag.Validator

	MaxWebResults int
	// MaxTopK caps the requested passage count; 0 means no cap.
	MaxTopK int

	// OnTransition, when set, is called for every state entered.
	OnTransition func(queryID string, s State)
	// OnFinish, when set, receives the trace of every completed run.
	OnFinish func(m *metrics.QueryMetrics)
}

type run struct {
	id string
	m  *metrics.QueryMetrics
	o  *Orchestrator
}

func (r *run) enter(s State) {
	r.m.Enter(s.String())
	if r.o.OnTransition != nil {
		r.o.OnTransition(r.id, s)
	}
}

func (r *run) finish(err error) {
	r.m.Finish(err)
	if r.o.OnFinish != nil {
		r.o.OnFinish(r.m)
	}
}

// Run answers one query. Provider failures degrade into the response
// message; language-model synthesis errors are returned unchanged.
func (o *Orchestrator) Run(ctx context.Context, query string, topK int) (schema.Response, error) {
	id := uuid.NewString()
	r := &run{id: id, m: metrics.NewQueryMetrics(id, query), o: o}
	r.enter(StateStart)

	r.enter(StateClassifying)
	start := time.Now()
	intent := o.classify(ctx, query, r.m)
	r.m.RecordStage("classify", start)
	r.m.Mode = intent.String()
	logger.Infof("orchestrator: query %s routed to %s", id, intent)

	var (
		resp schema.Response
		err  error
	)
	if intent == schema.IntentWeb {
		resp, err = o.runWeb(ctx, r, query)
	} else {
		resp, err = o.runLocal(ctx, r, query, topK)
	}
	if err != nil {
		r.finish(err)
		return nil, err
	}

	r.enter(StateDone)
	r.finish(nil)
	return resp, nil
}

func (o *Orchestrator) classify(ctx context.Context, query string, m *metrics.QueryMetrics) schema.Intent {
	if o.Router == nil {
		m.IntentDefaulted = true
		return schema.IntentLocal
	}
	d, err := o.Router.Route(ctx, query)
	if err != nil || d == nil {
		logger.Warnf("orchestrator: routing failed, defaulting to local: %v", err)
		m.IntentDefaulted = true
		return schema.IntentLocal
	}
	m.IntentDefaulted = d.Defaulted
	if d.Intent != schema.IntentWeb {
		return schema.IntentLocal
	}
	return schema.IntentWeb
}

func (o *Orchestrator) runLocal(ctx context.Context, r *run, query string, topK int) (schema.Response, error) {
	r.enter(StateRewriting)
	start := time.Now()
	rewritten := query
	if o.Rewriter != nil {
		rewritten = o.Rewriter.Rewrite(ctx, query)
	}
	r.m.RecordStage("rewrite", start)
	r.m.Rewritten = rewritten

	if o.MaxTopK > 0 && topK > o.MaxTopK {
		topK = o.MaxTopK
	}

	r.enter(StateRetrievingLocal)
	start = time.Now()
	res := o.Local.Retrieve(ctx, rewritten, topK)
	r.m.RecordStage("retrieve_local", start)
	r.m.RetrievedCount = len(res.Passages)
	metrics.ObserveRetriever("local", len(res.Passages))

	resp := schema.LocalResponse{
		Query:     query,
		Rewritten: rewritten,
		Documents: []string{},
		Metadatas: []schema.PassageMetadata{},
		Message:   res.Error,
	}
	if res.Error != "" {
		r.m.ProviderError = res.Error
	}
	if len(res.Passages) == 0 {
		resp.Answer = schema.FallbackLocal
		r.m.FallbackReason = ReasonNoPassages
		r.m.SynthesisSkipped = true
		return resp, nil
	}
	resp.Documents = res.Documents()
	resp.Metadatas = res.Metadatas()

	r.enter(StateSynthesizingLocal)
	start = time.Now()
	answer, err := o.Synth.AnswerFromReports(ctx, query, res.Passages)
	r.m.RecordStage("synthesize", start)
	if err != nil {
		return nil, err
	}
	resp.Answer = answer

	r.enter(StateValidating)
	out, verdict := o.validator().ValidateLocal(resp)
	o.recordVerdict(r, verdict)
	return out, nil
}

func (o *Orchestrator) runWeb(ctx context.Context, r *run, query string) (schema.Response, error) {
	limit := o.MaxWebResults
	if limit <= 0 {
		limit = defaultMaxWebResults
	}

	r.enter(StateRetrievingWeb)
	if b, ok := o.Web.(interface{ BackendName() string }); ok {
		r.m.SearchBackend = b.BackendName()
	}
	start := time.Now()
	articles, notice := o.Web.Fetch(ctx, query, limit)
	r.m.RecordStage("retrieve_web", start)
	r.m.RetrievedCount = len(articles)
	metrics.ObserveRetriever("web", len(articles))

	resp := schema.WebResponse{Query: query, Articles: []schema.Article{}}
	if notice != "" {
		resp.Answer = schema.FallbackWeb
		resp.Message = notice
		r.m.ProviderError = notice
		r.m.FallbackReason = ReasonSearchNotice
		r.m.SynthesisSkipped = true
		return resp, nil
	}

	r.enter(StateFiltering)
	relevant := o.filter().Filter(articles)
	r.m.FilteredCount = len(relevant)
	if len(relevant) == 0 {
		logger.Infof("orchestrator: %d web results, none relevant", len(articles))
		resp.Answer = schema.FallbackWeb
		r.m.FallbackReason = ReasonNoArticles
		r.m.SynthesisSkipped = true
		return resp, nil
	}
	resp.Articles = relevant

	r.enter(StateSynthesizingWeb)
	start = time.Now()
	answer, err := o.Synth.SummarizeArticles(ctx, query, relevant)
	r.m.RecordStage("synthesize", start)
	if err != nil {
		return nil, err
	}
	resp.Answer = answer

	r.enter(StateValidating)
	out, verdict := o.validator().ValidateWeb(resp)
	o.recordVerdict(r, verdict)
	return out, nil
}

func (o *Orchestrator) recordVerdict(r *run, v crag.Verdict) {
	r.m.Verdict = v.String()
	metrics.IncVerdict(r.m.Mode, v.String())
	if v == crag.VerdictUngrounded {
		r.m.FallbackReason = ReasonUngrounded
	}
}

var (
	defaultValidator = crag.NewValidator()
	defaultFilter    = retriever.NewRelevanceFilter(nil)
)

func (o *Orchestrator) validator() *crag.Validator {
	if o.Validator == nil {
		return defaultValidator
	}
	return o.Validator
}

func (o *Orchestrator) filter() *retriever.RelevanceFilter {
	if o.Filter == nil {
		return defaultFilter
	}
	return o.Filter
}
