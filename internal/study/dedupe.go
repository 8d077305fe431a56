package study

import (
	"slices"
	"strings"

	"github.com/spelldeck/spelldeck/internal/model"
)

const (
	// DuplicateThreshold is the word overlap at which two worksheets are
	// considered the same.
	DuplicateThreshold = 0.7

	maxCountDifference = 2
)

// Similarity is the share of recognized words found in existing, over the
// longer of the two lists. Words compare case-insensitively.
func Similarity(existing, recognized []string) float64 {
	a := lowerAll(existing)
	b := lowerAll(recognized)
	longest := max(len(a), len(b))
	if longest == 0 {
		return 0
	}

	common := 0
	for _, w := range b {
		if slices.Contains(a, w) {
			common++
		}
	}
	return float64(common) / float64(longest)
}

// FindDuplicate returns the first record in existing whose words match the
// recognized list. A record whose word count differs by more than two is
// never a match.
func FindDuplicate(existing []model.StudyRecord, recognized []string) (*model.StudyRecord, bool) {
	if len(recognized) == 0 {
		return nil, false
	}
	for i := range existing {
		words := existing[i].Words()
		if abs(len(words)-len(recognized)) > maxCountDifference {
			continue
		}
		if Similarity(words, recognized) >= DuplicateThreshold {
			return &existing[i], true
		}
	}
	return nil, false
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.ToLower(strings.TrimSpace(w)))
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
