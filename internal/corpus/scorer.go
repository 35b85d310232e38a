package corpus

import (
	"sort"
	"strings"
)

// normalizeQuery lowercases and trims a query for scoring and cache keying.
func normalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Score ranks chunks against query: a chunk containing the whole query as a
// substring earns the query's length, and every query token adds 1 for a
// content hit and 2 for a section title hit. Chunks scoring zero are dropped;
// ties keep corpus order.
func Score(chunks []Chunk, query string) []ScoredChunk {
	q := normalizeQuery(query)
	if q == "" {
		return nil
	}
	tokens := strings.Fields(q)

	scored := make([]ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		content := strings.ToLower(chunk.Content)
		title := strings.ToLower(chunk.Title)

		score := 0
		if strings.Contains(content, q) {
			score += len(q)
		}
		for _, token := range tokens {
			if strings.Contains(title, token) {
				score += 2
			}
			if strings.Contains(content, token) {
				score++
			}
		}

		if score > 0 {
			scored = append(scored, ScoredChunk{Chunk: chunk, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}
