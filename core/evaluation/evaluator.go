// Package evaluation scores answers against their query and context and redrafts weak answers once.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/core/pool"
	"github.com/siherrmann/medrag/core/similarity"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// DefaultRedraftThreshold is the overall score below which an answer is redrafted
const DefaultRedraftThreshold = 0.7

// Revision is the outcome of EvaluateAndRevise
type Revision struct {
	Answer     string
	Score      model.EvaluationScore
	Assessment Assessment
	Revised    bool
}

// Evaluator scores answers by embedding similarity
type Evaluator struct {
	embed     pipeline.EmbedFunc
	drafter   *Drafter
	threshold float64
	pool      *pool.Pool
	logger    *slog.Logger
}

// NewEvaluator creates an evaluator. Without a drafter answers are never redrafted.
func NewEvaluator(embed pipeline.EmbedFunc, drafter *Drafter, threshold float64, p *pool.Pool, logger *slog.Logger) (*Evaluator, error) {
	if embed == nil {
		return nil, helper.NewError("evaluator validation", fmt.Errorf("embedder is nil"))
	}
	if threshold <= 0 {
		threshold = DefaultRedraftThreshold
	}
	if p == nil {
		p = pool.New(pool.DefaultSize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Evaluator{
		embed:     embed,
		drafter:   drafter,
		threshold: threshold,
		pool:      p,
		logger:    logger,
	}, nil
}

// Evaluate scores the cleaned answer. ChunkTopSimilarity is the best
// chunk to answer similarity, QueryTopSimilarity the best chunk to query
// similarity, both taken over all chunks. Zero norm embeddings count as 0.
func (e *Evaluator) Evaluate(ctx context.Context, query string, chunks []model.RankedChunk, answer string) (model.EvaluationScore, error) {
	texts := make([]string, 0, len(chunks)+2)
	texts = append(texts, query, CleanAnswer(answer))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}

	embeddings := make([][]float32, len(texts))
	group, groupCtx := e.pool.Group(ctx)
	for i, text := range texts {
		group.Go(func() error {
			embedding, err := pool.Run(groupCtx, e.pool, func(context.Context) ([]float32, error) {
				return e.embed(text)
			})
			if err != nil {
				return helper.NewError("embed evaluation text", err)
			}
			embeddings[i] = embedding
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return model.EvaluationScore{}, err
	}

	queryEmbedding, answerEmbedding := embeddings[0], embeddings[1]

	var chunkTop, queryTop float64
	for i, chunkEmbedding := range embeddings[2:] {
		answerSimilarity := similarity.CosineOrZero(chunkEmbedding, answerEmbedding)
		querySimilarity := similarity.CosineOrZero(chunkEmbedding, queryEmbedding)
		if i == 0 || answerSimilarity > chunkTop {
			chunkTop = answerSimilarity
		}
		if i == 0 || querySimilarity > queryTop {
			queryTop = querySimilarity
		}
	}

	return model.NewEvaluationScore(chunkTop, queryTop, similarity.CosineOrZero(queryEmbedding, answerEmbedding)), nil
}

// NeedsRedraft reports whether score is below the redraft threshold
func (e *Evaluator) NeedsRedraft(score model.EvaluationScore) bool {
	return score.Overall < e.threshold
}

// EvaluateAndRevise scores the answer and, if it scores below the threshold,
// redrafts it once according to the model's assessment and scores it again.
func (e *Evaluator) EvaluateAndRevise(ctx context.Context, query string, chunks []model.RankedChunk, answer string) (Revision, error) {
	score, err := e.Evaluate(ctx, query, chunks, answer)
	if err != nil {
		return Revision{}, err
	}

	revision := Revision{Answer: answer, Score: score}
	if !e.NeedsRedraft(score) || e.drafter == nil {
		return revision, nil
	}

	e.logger.Info("Answer below threshold, assessing", slog.Float64("overall", score.Overall), slog.Float64("threshold", e.threshold))

	assessment, err := pool.Run(ctx, e.pool, func(ctx context.Context) (Assessment, error) {
		return e.drafter.Assess(ctx, query, chunks, answer)
	})
	if err != nil {
		e.logger.Warn("Assessment failed, keeping answer", slog.String("error", err.Error()))
		return revision, nil
	}
	revision.Assessment = assessment
	if !assessment.NeedsRevision() {
		return revision, nil
	}

	redrafted, err := pool.Run(ctx, e.pool, func(ctx context.Context) (string, error) {
		return e.drafter.Draft(ctx, query, chunks, answer, assessment)
	})
	if err != nil {
		return Revision{}, err
	}

	redraftedScore, err := e.Evaluate(ctx, query, chunks, redrafted)
	if err != nil {
		return Revision{}, err
	}

	e.logger.Info("Answer redrafted", slog.Float64("before", score.Overall), slog.Float64("after", redraftedScore.Overall))

	revision.Answer = redrafted
	revision.Score = redraftedScore
	revision.Revised = true
	return revision, nil
}
