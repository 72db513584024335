package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/models"
)

// lowConfidenceSuggestions is the fixed help shown when the classifier was
// not sure what the user wanted.
var lowConfidenceSuggestions = []string{
	"dark korean thrillers from the 2010s",
	"series like Breaking Bad on Netflix",
	"best sci-fi movies of the 90s",
	"what is trending this week",
	"movies with Denzel Washington",
}

func (o *Orchestrator) executeLowConfidence(ctx context.Context, in *models.Intent, query string) (*models.Answer, error) {
	return &models.Answer{
		Kind:        string(in.Kind),
		Text:        "I was not sure what you are looking for. Try a more specific request, for example:",
		Suggestions: lowConfidenceSuggestions,
	}, nil
}

func (o *Orchestrator) executeLookup(ctx context.Context, in *models.Intent, query string) (*models.Answer, error) {
	lk := in.Lookup
	mt := in.MediaType

	matches, err := o.catalog.SearchTitles(ctx, mt, lk.Title, lk.Year, 1)
	if err != nil {
		return nil, fmt.Errorf("title search: %w", err)
	}
	if len(matches) == 0 {
		return &models.Answer{
			Kind: string(in.Kind),
			Text: fmt.Sprintf("Could not find %q in the catalog.", lk.Title),
		}, nil
	}

	best := matches[0]
	details, err := o.catalog.Details(ctx, mt, best.ID)
	if err != nil {
		// The search hit alone is still a useful answer.
		o.logger.Warn("details fetch failed", zap.Int("id", best.ID), zap.Error(err))
		return &models.Answer{
			Kind:  string(in.Kind),
			Text:  o.formatItems("Found:", mt, []models.MediaItem{best}),
			Items: []models.MediaItem{best},
		}, nil
	}

	return &models.Answer{
		Kind:  string(in.Kind),
		Text:  o.formatDetails(details),
		Items: []models.MediaItem{details.MediaItem},
	}, nil
}

func (o *Orchestrator) executePerson(ctx context.Context, in *models.Intent, query string) (*models.Answer, error) {
	name := in.Person.Name

	people, err := o.catalog.SearchPerson(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("person search: %w", err)
	}
	if len(people) == 0 {
		return &models.Answer{
			Kind: string(in.Kind),
			Text: fmt.Sprintf("Could not find anyone named %q in the catalog.", name),
		}, nil
	}

	hit := people[0]
	details, err := o.catalog.PersonDetails(ctx, hit.ID)
	if err != nil {
		o.logger.Warn("person details fetch failed", zap.Int("id", hit.ID), zap.Error(err))
		details = &hit
	}
	if len(details.KnownFor) == 0 {
		details.KnownFor = hit.KnownFor
	}

	return &models.Answer{
		Kind:  string(in.Kind),
		Text:  o.formatPerson(details),
		Items: details.KnownFor,
	}, nil
}

func (o *Orchestrator) executeTrending(ctx context.Context, in *models.Intent, query string) (*models.Answer, error) {
	window := in.Trending.TimeWindow
	mt := in.MediaType

	items, err := o.catalog.Trending(ctx, mt, window)
	if err != nil {
		return nil, fmt.Errorf("trending: %w", err)
	}
	if len(items) == 0 {
		return &models.Answer{
			Kind: string(in.Kind),
			Text: "Nothing is trending right now.",
		}, nil
	}

	items = truncateItems(items, o.pipeline.FallbackResultCap)
	header := "Trending today:"
	if window == models.WindowWeek {
		header = "Trending this week:"
	}
	return &models.Answer{
		Kind:  string(in.Kind),
		Text:  o.formatItems(header, mt, items),
		Items: items,
	}, nil
}
