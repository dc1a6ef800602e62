package deepsearch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/siherrmann/medrag/core/pipeline"
	"github.com/siherrmann/medrag/core/pool"
	"github.com/siherrmann/medrag/core/retrieval"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

const (
	DefaultSources            = 5
	DefaultChunks             = 7
	DefaultSentencesPerWindow = 50
)

// KeywordFunc reduces a query to a search keyword string
type KeywordFunc func(query string) string

// TextExtractFunc turns a downloaded document into text
type TextExtractFunc func(data []byte) (string, error)

// Augmenter fetches papers for a query and returns their windows nearest to it.
// Every call builds its own index which is dropped afterwards.
type Augmenter struct {
	source   Source
	keywords KeywordFunc
	embed    pipeline.EmbedFunc
	chunker  pipeline.ChunkFunc
	extract  TextExtractFunc
	pool     *pool.Pool
	logger   *slog.Logger
}

// NewAugmenter creates an augmenter windowing documents by sentencesPerWindow sentences
func NewAugmenter(source Source, keywords KeywordFunc, embed pipeline.EmbedFunc, sentencesPerWindow int, p *pool.Pool, logger *slog.Logger) (*Augmenter, error) {
	if source == nil {
		return nil, helper.NewError("augmenter validation", fmt.Errorf("document source is nil"))
	}
	if keywords == nil {
		return nil, helper.NewError("augmenter validation", fmt.Errorf("keyword extractor is nil"))
	}
	if embed == nil {
		return nil, helper.NewError("augmenter validation", fmt.Errorf("embedder is nil"))
	}
	if sentencesPerWindow <= 0 {
		sentencesPerWindow = DefaultSentencesPerWindow
	}
	if p == nil {
		p = pool.New(pool.DefaultSize)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Augmenter{
		source:   source,
		keywords: keywords,
		embed:    embed,
		chunker:  pipeline.SentenceChunker(sentencesPerWindow),
		extract:  ExtractPDFText,
		pool:     p,
		logger:   logger,
	}, nil
}

// SetTextExtractor replaces the PDF text extractor
func (a *Augmenter) SetTextExtractor(extract TextExtractFunc) {
	a.extract = extract
}

// Augment returns the kChunks windows of the top kSources papers nearest to query.
// Any search, download or extraction error fails the whole call.
func (a *Augmenter) Augment(ctx context.Context, query string, kSources int, kChunks int) ([]*model.Chunk, error) {
	keyword := a.keywords(query)
	if keyword == "" {
		return nil, helper.NewError("deep search", fmt.Errorf("query %q has no keywords", query))
	}

	articles, err := pool.Run(ctx, a.pool, func(ctx context.Context) ([]Article, error) {
		return a.source.Search(ctx, keyword, kSources)
	})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Deep search articles", slog.String("keyword", keyword), slog.Int("articles", len(articles)))

	windows := make([][]*model.Chunk, len(articles))
	group, groupCtx := a.pool.Group(ctx)
	for i, article := range articles {
		group.Go(func() error {
			chunks, err := a.windows(groupCtx, article)
			if err != nil {
				return helper.NewError(fmt.Sprintf("article %s", article.PDFURL), err)
			}
			windows[i] = chunks
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	index, err := retrieval.NewFlatIndex(nil)
	if err != nil {
		return nil, err
	}
	for _, chunks := range windows {
		for _, chunk := range chunks {
			if err := index.Add(chunk); err != nil {
				return nil, err
			}
		}
	}
	if index.Len() == 0 {
		return []*model.Chunk{}, nil
	}

	queryEmbedding, err := pool.Run(ctx, a.pool, func(context.Context) ([]float32, error) {
		return a.embed(query)
	})
	if err != nil {
		return nil, helper.NewError("embed query", err)
	}

	return index.Search(ctx, queryEmbedding, kChunks)
}

// windows downloads an article and embeds its sentence windows
func (a *Augmenter) windows(ctx context.Context, article Article) ([]*model.Chunk, error) {
	data, err := pool.Run(ctx, a.pool, func(ctx context.Context) ([]byte, error) {
		return a.source.Fetch(ctx, article.PDFURL)
	})
	if err != nil {
		return nil, err
	}

	text, err := a.extract(data)
	if err != nil {
		return nil, err
	}

	texts, err := a.chunker(CleanText(text))
	if err != nil {
		return nil, helper.NewError("chunk", err)
	}

	var chunks []*model.Chunk
	for _, windowText := range texts {
		if windowText == "" {
			continue
		}

		embedding, err := pool.Run(ctx, a.pool, func(context.Context) ([]float32, error) {
			return a.embed(windowText)
		})
		if err != nil {
			return nil, helper.NewError("embed window", err)
		}

		chunks = append(chunks, &model.Chunk{
			ID:        uuid.New(),
			Text:      windowText,
			Metadata:  article.Metadata,
			Embedding: embedding,
		})
	}
	return chunks, nil
}
