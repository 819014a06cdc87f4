package crag

import (
	"strings"

	"github.com/childsafe-za/childsafe-rag/common/logger"
	"github.com/childsafe-za/childsafe-rag/schema"
)

// Validator applies the literal grounding check to synthesised answers.
// The check is a substring test, not a semantic judgement.
type Validator struct {
	WebTerms   []string
	LocalTerms []string
}

func NewValidator() *Validator {
	return &Validator{
		WebTerms:   []string{"childsafe"},
		LocalTerms: []string{"childsafe", "report"},
	}
}

// Check reports whether answer mentions any of terms, ignoring case.
func Check(answer string, terms []string) Verdict {
	lower := strings.ToLower(answer)
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(lower, t) {
			return VerdictGrounded
		}
	}
	return VerdictUngrounded
}

// ValidateWeb replaces an ungrounded web answer with the fallback and drops
// the articles.
func (v *Validator) ValidateWeb(resp schema.WebResponse) (schema.WebResponse, Verdict) {
	verdict := Check(resp.Answer, v.WebTerms)
	if verdict == VerdictUngrounded {
		logger.Infof("validator: web answer does not mention the organisation, using fallback")
		resp.Answer = schema.FallbackWeb
		resp.Articles = []schema.Article{}
	}
	return resp, verdict
}

// ValidateLocal replaces an ungrounded local answer with the fallback. The
// retrieved documents are kept for inspection.
func (v *Validator) ValidateLocal(resp schema.LocalResponse) (schema.LocalResponse, Verdict) {
	verdict := Check(resp.Answer, v.LocalTerms)
	if verdict == VerdictUngrounded {
		logger.Infof("validator: local answer is not grounded in the reports, using fallback")
		resp.Answer = schema.FallbackLocal
	}
	return resp, verdict
}

// Validate dispatches on the response variant.
func (v *Validator) Validate(resp schema.Response) (schema.Response, Verdict) {
	switch r := resp.(type) {
	case schema.WebResponse:
		return v.ValidateWeb(r)
	case *schema.WebResponse:
		out, verdict := v.ValidateWeb(*r)
		return out, verdict
	case schema.LocalResponse:
		return v.ValidateLocal(r)
	case *schema.LocalResponse:
		out, verdict := v.ValidateLocal(*r)
		return out, verdict
	default:
		return resp, VerdictGrounded
	}
}
