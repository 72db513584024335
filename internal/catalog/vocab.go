package catalog

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/models"
)

// LoadVocabulary fills the shared vocabulary store from the catalog. It runs
// once at startup, before the first request is served. Genre lists are
// required; provider and certification lists degrade to empty on failure.
func (c *Client) LoadVocabulary(ctx context.Context, v *models.Vocabulary) error {
	for _, mt := range []models.MediaType{models.MediaMovie, models.MediaTV} {
		genres, err := c.Genres(ctx, mt)
		if err != nil {
			return fmt.Errorf("loading %s genres: %w", mt, err)
		}
		v.SetGenres(mt, genres)

		certs, err := c.Certifications(ctx, mt)
		if err != nil {
			c.logger.Warn("loading certifications failed, continuing without",
				zap.String("media_type", string(mt)),
				zap.Error(err),
			)
		} else {
			v.SetCertifications(mt, certs)
		}
	}

	// Movie and series provider lists overlap heavily; merge them so the
	// fallback scan over query text sees every service either list knows.
	var providers []models.Provider
	seen := make(map[int]bool)
	for _, mt := range []models.MediaType{models.MediaMovie, models.MediaTV} {
		provs, err := c.Providers(ctx, mt)
		if err != nil {
			c.logger.Warn("loading watch providers failed, continuing without",
				zap.String("media_type", string(mt)),
				zap.Error(err),
			)
			continue
		}
		for _, p := range provs {
			if !seen[p.ID] {
				seen[p.ID] = true
				providers = append(providers, p)
			}
		}
	}
	v.SetProviders(providers)

	c.logger.Info("catalog vocabulary loaded",
		zap.Int("movie_genres", len(v.Genres(models.MediaMovie))),
		zap.Int("tv_genres", len(v.Genres(models.MediaTV))),
		zap.Int("providers", len(v.Providers())),
	)
	return nil
}
