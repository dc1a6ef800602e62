package retrieval

import (
	"sort"

	"github.com/siherrmann/medrag/model"
)

// Rank deduplicates matches by document title and returns at most k chunks
// sorted by score. The first chunk of a title represents it, carrying the
// number of times the title occurs and the highest match count of the title.
// Ties keep encounter order. A negative k returns every representative.
func Rank(matches []model.RetrievedMatch, k int) []model.RankedChunk {
	repeats := make(map[string]int)
	for _, match := range matches {
		if match.Chunk == nil {
			continue
		}
		repeats[match.Chunk.Metadata.Title()]++
	}

	ranked := []model.RankedChunk{}
	position := make(map[string]int)
	for _, match := range matches {
		if match.Chunk == nil {
			continue
		}

		title := match.Chunk.Metadata.Title()
		if i, ok := position[title]; ok {
			if match.MatchCount > ranked[i].MatchCount {
				ranked[i].MatchCount = match.MatchCount
			}
			continue
		}

		position[title] = len(ranked)
		ranked = append(ranked, model.RankedChunk{
			Metadata:    match.Chunk.Metadata,
			Text:        match.Chunk.Text,
			RepeatCount: repeats[title],
			MatchCount:  match.MatchCount,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score() > ranked[j].Score()
	})

	if k >= 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
