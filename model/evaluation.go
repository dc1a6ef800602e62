package model

// EvaluationScore holds the similarities used to judge an answer
type EvaluationScore struct {
	ChunkTopSimilarity    float64 `json:"chunk_top_similarity"`
	QueryTopSimilarity    float64 `json:"query_top_similarity"`
	QueryAnswerSimilarity float64 `json:"query_answer_similarity"`
	Overall               float64 `json:"overall"`
}

// NewEvaluationScore sets Overall to the mean of the three similarities
func NewEvaluationScore(chunkTop, queryTop, queryAnswer float64) EvaluationScore {
	return EvaluationScore{
		ChunkTopSimilarity:    chunkTop,
		QueryTopSimilarity:    queryTop,
		QueryAnswerSimilarity: queryAnswer,
		Overall:               (chunkTop + queryTop + queryAnswer) / 3,
	}
}
