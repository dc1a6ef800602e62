package model

const (
	repeatWeight = 0.7
	matchWeight  = 0.3
)

// RetrievedMatch is a chunk annotated with the number of graph tag hits for one subquery
type RetrievedMatch struct {
	Chunk      *Chunk `json:"chunk"`
	MatchCount int    `json:"match_count"`
}

// RankedChunk is a deduplicated chunk entering the generation prompt
type RankedChunk struct {
	Metadata    Metadata `json:"metadata"`
	Text        string   `json:"text"`
	RepeatCount int      `json:"repeat_count"`
	MatchCount  int      `json:"match_count"`
}

// Score weights how often the document was retrieved over how many graph tags it matched
func (r RankedChunk) Score() float64 {
	return repeatWeight*float64(r.RepeatCount) + matchWeight*float64(r.MatchCount)
}
