package llm

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// PromptKind names one of the fixed prompt templates.
type PromptKind string

const (
	KindIntent  PromptKind = "intent"
	KindRewrite PromptKind = "rewrite"
	KindAnswer  PromptKind = "answer"
	KindSummary PromptKind = "summary"
)

const intentTemplate = `Classify the user query as local or web.

User query: {{ .query }}

Return exactly one word:
- "local" if the query is about ChildSafe South Africa, their programs, annual reports, road safety, child safety initiatives, financial performance or any information that would be found in ChildSafe's annual reports
- "web" if the query is asking for general news, current events, articles.

Examples:
"who is childsafe" -> local
"childsafe programs" -> local
"road safety statistics" -> local
"latest news" -> web
"current events" -> web
"financial" -> local
`

const rewriteTemplate = `Rewrite this query to be more precise for document search:

{{ .query }}

Rewritten:`

const answerTemplate = `You are an assistant answering strictly from ChildSafe South Africa annual reports.

User Question: {{ .query }}

Relevant Passages from Reports:
{{ .docs }}

Instructions:
- Only answer using the provided passages.
- If the information is not in the passages, say:
  "No relevant information found in ChildSafe reports."
- Always cite the report year and page number like this:
  "According to the 2019–2020 report (page 5)...".
- Never use outside knowledge or speculation.
- Never include information unrelated to ChildSafe South Africa.
`

const summaryTemplate = `You are an assistant summarizing external web articles about **ChildSafe South Africa**.

User Request: {{ .query }}

Articles:
{{ .articles }}

Instructions:
- Only summarize content explicitly mentioning **ChildSafe South Africa (https://childsafe.org.za/)**.
- Ignore all other content completely.
- If no articles mention ChildSafe South Africa, respond with:
  "No relevant ChildSafe South Africa information found."
- For valid articles, write 2–3 bullet points each.
- Always include the article link.
- Do not speculate, invent details, or include unrelated information.
`

var promptSources = map[PromptKind]string{
	KindIntent:  intentTemplate,
	KindRewrite: rewriteTemplate,
	KindAnswer:  answerTemplate,
	KindSummary: summaryTemplate,
}

// Prompts holds the parsed templates. Missing variables fail rendering.
type Prompts struct {
	templates map[PromptKind]*template.Template
}

// NewPrompts parses the built-in templates. overrides replaces the text of
// individual kinds and may be nil.
func NewPrompts(overrides map[PromptKind]string) (*Prompts, error) {
	p := &Prompts{templates: make(map[PromptKind]*template.Template, len(promptSources))}
	for kind, src := range promptSources {
		if o, ok := overrides[kind]; ok && o != "" {
			src = o
		}
		tmpl, err := template.New(string(kind)).Option("missingkey=error").Funcs(sprig.FuncMap()).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s prompt: %w", kind, err)
		}
		p.templates[kind] = tmpl
	}
	return p, nil
}

// MustPrompts is NewPrompts(nil) for the built-in set, which always parses.
func MustPrompts() *Prompts {
	p, err := NewPrompts(nil)
	if err != nil {
		panic(err)
	}
	return p
}

// Render fills the template for kind with vars.
func (p *Prompts) Render(kind PromptKind, vars map[string]string) (string, error) {
	tmpl, ok := p.templates[kind]
	if !ok {
		return "", fmt.Errorf("unknown prompt kind: %s", kind)
	}
	data := make(map[string]any, len(vars))
	for k, v := range vars {
		data[k] = v
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", kind, err)
	}
	return buf.String(), nil
}
