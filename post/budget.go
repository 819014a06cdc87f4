package post

import (
	"github.com/childsafe-za/childsafe-rag/common/logger"
)

// BudgetStats describes how many context blocks survived the budget.
type BudgetStats struct {
	Kept    int
	Dropped int
	Tokens  int
}

// FitBlocks keeps blocks in order until adding the next one (plus the
// separator) would exceed maxTokens. The first block is always kept.
// maxTokens <= 0 disables the budget.
func FitBlocks(blocks []string, sep string, maxTokens int, counter TokenCounter) ([]string, BudgetStats) {
	if maxTokens <= 0 || counter == nil || len(blocks) == 0 {
		return blocks, BudgetStats{Kept: len(blocks)}
	}
	sepTokens := counter.CountTokens(sep)
	total := 0
	kept := make([]string, 0, len(blocks))
	for i, b := range blocks {
		cost := counter.CountTokens(b)
		if i > 0 {
			cost += sepTokens
		}
		if i > 0 && total+cost > maxTokens {
			break
		}
		total += cost
		kept = append(kept, b)
	}
	stats := BudgetStats{Kept: len(kept), Dropped: len(blocks) - len(kept), Tokens: total}
	if stats.Dropped > 0 {
		logger.Infof("post: context budget %d tokens kept %d blocks, dropped %d", maxTokens, stats.Kept, stats.Dropped)
	}
	return kept, stats
}
