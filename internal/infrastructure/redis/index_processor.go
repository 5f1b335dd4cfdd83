package redis

import (
	"context"
	"fmt"

	"flowdeck/internal/domain"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// IndexProcessor cleans the vector and keyword index entries a dataset left
// in Redis. Vector entries live under the dataset's collection key space;
// keyword tables under a per-dataset hash.
type IndexProcessor struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewIndexProcessor(client *redis.Client, logger *logrus.Logger) *IndexProcessor {
	return &IndexProcessor{client: client, logger: logger}
}

func (p *IndexProcessor) Clean(ctx context.Context, dataset *domain.Dataset, nodeIDs []string, withKeywords, deleteChildChunks bool) error {
	if len(nodeIDs) == 0 {
		if err := p.deleteByPattern(ctx, fmt.Sprintf("vector:%s:*", dataset.ID)); err != nil {
			return err
		}
	} else {
		for _, nodeID := range nodeIDs {
			if err := p.deleteByPattern(ctx, fmt.Sprintf("vector:%s:%s*", dataset.ID, nodeID)); err != nil {
				return err
			}
		}
	}

	if deleteChildChunks {
		if err := p.deleteByPattern(ctx, fmt.Sprintf("chunk:%s:*", dataset.ID)); err != nil {
			return err
		}
	}
	if withKeywords {
		if err := p.client.Del(ctx, fmt.Sprintf("keyword_table:%s", dataset.ID)).Err(); err != nil {
			return err
		}
	}

	p.logger.WithField("dataset_id", dataset.ID).Debug("cleaned dataset index entries")
	return nil
}

func (p *IndexProcessor) deleteByPattern(ctx context.Context, pattern string) error {
	iter := p.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := p.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
