package pipeline

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
	"github.com/siherrmann/medrag/helper"
	"github.com/siherrmann/medrag/model"
)

// DefaultEntityExtractor creates an entity extractor using the distilbert-NER model
func DefaultEntityExtractor() (EntityExtractFunc, error) {
	modelName := "KnightsAnalytics/distilbert-NER"
	modelPath, err := helper.PrepareModel(modelName, "model.onnx")
	if err != nil {
		return nil, err
	}

	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create hugot session: %w", err)
	}

	config := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "ner-pipeline",
		Options: []hugot.TokenClassificationOption{
			pipelines.WithSimpleAggregation(),
			pipelines.WithIgnoreLabels([]string{"O"}),
		},
	}
	nerPipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		if destroyErr := session.Destroy(); destroyErr != nil {
			return nil, fmt.Errorf("failed to create NER pipeline: %w (cleanup error: %v)", err, destroyErr)
		}
		return nil, fmt.Errorf("failed to create NER pipeline: %w", err)
	}

	return func(text string) ([]*model.Entity, error) {
		result, err := nerPipeline.RunPipeline([]string{text})
		if err != nil {
			return nil, fmt.Errorf("failed to run NER: %w", err)
		}

		if len(result.Entities) == 0 {
			return nil, nil
		}

		var entities []*model.Entity
		for _, entity := range result.Entities[0] {
			name := strings.TrimSpace(entity.Word)
			if name == "" {
				continue
			}
			entities = append(entities, &model.Entity{
				ID:   uuid.New(),
				Name: name,
				Type: normalizeEntityType(entity.Entity),
				Metadata: model.Metadata{
					"confidence": entity.Score,
					"start":      entity.Start,
					"end":        entity.End,
				},
			})
		}

		return entities, nil
	}, nil
}

// EntitySeedExtractor uses the names of extracted entities as graph seeds
func EntitySeedExtractor(extract EntityExtractFunc) SeedExtractFunc {
	return func(text string) ([]string, error) {
		entities, err := extract(text)
		if err != nil {
			return nil, err
		}

		seeds := make([]string, 0, len(entities))
		for _, entity := range entities {
			seeds = append(seeds, entity.Name)
		}
		return seeds, nil
	}
}

// FallbackSeedExtractor returns the seeds of the first extractor that finds any.
// Errors of an extractor are skipped unless no extractor succeeds.
func FallbackSeedExtractor(extractors ...SeedExtractFunc) SeedExtractFunc {
	return func(text string) ([]string, error) {
		var lastErr error
		for _, extract := range extractors {
			seeds, err := extract(text)
			if err != nil {
				lastErr = err
				continue
			}
			if len(seeds) > 0 {
				return seeds, nil
			}
			lastErr = nil
		}
		return nil, lastErr
	}
}

// normalizeEntityType removes B- and I- prefixes from NER labels
func normalizeEntityType(label string) string {
	if strings.HasPrefix(label, "B-") || strings.HasPrefix(label, "I-") {
		return label[2:]
	}
	return label
}
