package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/catalog"
	"github.com/mkarvo/reelscout/internal/models"
	"github.com/mkarvo/reelscout/internal/observability"
)

func (o *Orchestrator) executeDiscover(ctx context.Context, in *models.Intent, query string) (*models.Answer, error) {
	d := in.Discover
	mt := in.MediaType
	params := o.discoverParams(ctx, mt, d)

	providers := o.knownProviders(d.WatchProviders)
	if len(providers) > 1 {
		return o.discoverPerProvider(ctx, in, params, providers)
	}
	if len(providers) == 1 {
		params.ProviderIDs = []int{providers[0].ID}
	}

	items, err := o.catalog.Discover(ctx, mt, params)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if len(items) == 0 {
		return &models.Answer{
			Kind: string(in.Kind),
			Text: "No titles matched those filters. Try removing a filter or widening the year range.",
		}, nil
	}

	items = truncateItems(items, o.pipeline.FallbackResultCap)
	return &models.Answer{
		Kind:  string(in.Kind),
		Text:  o.formatItems("Here is what I found:", mt, items),
		Items: items,
	}, nil
}

// labeledStream carries its section label through a fan-out. gather drops
// failed branches from its result slice, so a label indexed positionally
// would drift onto a sibling's results; keeping the label inside the branch
// value makes that impossible.
type labeledStream struct {
	title string
	mt    models.MediaType
	items []models.MediaItem
}

// discoverPerProvider issues one discover call per known provider and
// sections the answer by provider.
func (o *Orchestrator) discoverPerProvider(ctx context.Context, in *models.Intent, base catalog.DiscoverParams, providers []models.Provider) (*models.Answer, error) {
	mt := in.MediaType
	branches := make([]branch[labeledStream], 0, len(providers))
	for _, prov := range providers {
		prov := prov
		branches = append(branches, branch[labeledStream]{
			name: fmt.Sprintf("discover:provider:%d", prov.ID),
			run: func(ctx context.Context) (labeledStream, error) {
				p := base
				p.ProviderIDs = []int{prov.ID}
				items, err := o.catalog.Discover(ctx, mt, p)
				if err != nil {
					return labeledStream{}, err
				}
				return labeledStream{title: "On " + prov.Name, mt: mt, items: items}, nil
			},
		})
	}

	streams, errs := gather(ctx, branches)
	for _, be := range errs {
		observability.FanoutBranchFailures.WithLabelValues("provider").Inc()
		o.logger.Warn("provider discover failed", zap.String("branch", be.name), zap.Error(be.err))
	}

	var sections []answerSection
	var all []models.MediaItem
	for _, stream := range streams {
		if len(stream.items) == 0 {
			continue
		}
		items := truncateItems(stream.items, o.pipeline.FallbackResultCap)
		sections = append(sections, answerSection{Title: stream.title, MediaType: stream.mt, Items: items})
		all = append(all, items...)
	}
	if len(sections) == 0 {
		return &models.Answer{
			Kind: string(in.Kind),
			Text: "No titles matched those filters on the named services.",
		}, nil
	}
	return &models.Answer{
		Kind:  string(in.Kind),
		Text:  o.formatSections(sections),
		Items: all,
	}, nil
}

// executeBothTypes runs the same discover filters against movies and series
// concurrently and sections the answer by media type.
func (o *Orchestrator) executeBothTypes(ctx context.Context, in *models.Intent, query string) (*models.Answer, error) {
	d := in.Discover
	arms := []struct {
		title string
		mt    models.MediaType
	}{
		{"Movies", models.MediaMovie},
		{"Series", models.MediaTV},
	}
	branches := make([]branch[labeledStream], 0, len(arms))
	for _, arm := range arms {
		arm := arm
		branches = append(branches, branch[labeledStream]{
			name: "discover:" + string(arm.mt),
			run: func(ctx context.Context) (labeledStream, error) {
				items, err := o.catalog.Discover(ctx, arm.mt, o.discoverParams(ctx, arm.mt, d))
				if err != nil {
					return labeledStream{}, err
				}
				return labeledStream{title: arm.title, mt: arm.mt, items: items}, nil
			},
		})
	}

	streams, errs := gather(ctx, branches)
	for _, be := range errs {
		observability.FanoutBranchFailures.WithLabelValues("both_types").Inc()
		o.logger.Warn("both-types branch failed", zap.String("branch", be.name), zap.Error(be.err))
	}

	var sections []answerSection
	var all []models.MediaItem
	for _, stream := range streams {
		if len(stream.items) == 0 {
			continue
		}
		items := truncateItems(stream.items, o.pipeline.FallbackResultCap)
		sections = append(sections, answerSection{Title: stream.title, MediaType: stream.mt, Items: items})
		all = append(all, items...)
	}
	if len(sections) == 0 {
		return &models.Answer{
			Kind: string(in.Kind),
			Text: "No movies or series matched those filters.",
		}, nil
	}
	return &models.Answer{
		Kind:  string(in.Kind),
		Text:  o.formatSections(sections),
		Items: all,
	}, nil
}

// executeActorDiscover resolves the named person first, then discovers by
// cast id with the remaining filters.
func (o *Orchestrator) executeActorDiscover(ctx context.Context, in *models.Intent, query string) (*models.Answer, error) {
	d := in.Discover
	mt := in.MediaType

	people, err := o.catalog.SearchPerson(ctx, d.ActorOrDirector)
	if err != nil {
		return nil, fmt.Errorf("person search: %w", err)
	}
	if len(people) == 0 {
		return &models.Answer{
			Kind: string(in.Kind),
			Text: fmt.Sprintf("Could not find anyone named %q in the catalog.", d.ActorOrDirector),
		}, nil
	}

	params := o.discoverParams(ctx, mt, d)
	params.CastID = people[0].ID
	items, err := o.catalog.Discover(ctx, mt, params)
	if err != nil {
		return nil, fmt.Errorf("discover by cast: %w", err)
	}
	if len(items) == 0 {
		return &models.Answer{
			Kind: string(in.Kind),
			Text: fmt.Sprintf("No titles with %s matched those filters.", people[0].Name),
		}, nil
	}

	items = truncateItems(items, o.pipeline.FallbackResultCap)
	return &models.Answer{
		Kind:  string(in.Kind),
		Text:  o.formatItems(fmt.Sprintf("Titles with %s:", people[0].Name), mt, items),
		Items: items,
	}, nil
}

// discoverParams maps discover intent fields onto catalog filter conditions.
func (o *Orchestrator) discoverParams(ctx context.Context, mt models.MediaType, d *models.DiscoverIntent) catalog.DiscoverParams {
	p := catalog.DiscoverParams{
		GenreIDs:   o.genreIDsFor(mt, d.Genres),
		KeywordIDs: o.resolver.ResolveMany(ctx, d.Keywords),
		Language:   d.OriginalLanguage,
		MinRating:  d.MinRating,
		MinVotes:   d.MinVoteCount,
		SortBy:     d.SortOrder,
	}
	if d.Year > 0 {
		p.YearFrom, p.YearTo = d.Year, d.Year
	} else {
		p.YearFrom, p.YearTo = d.YearFrom, d.YearTo
	}
	if d.AiringNow && mt == models.MediaTV {
		p.AirDateFrom, p.AirDateTo = currentQuarterWindow(o.now())
		// Currently airing seasons have not accumulated votes yet.
		if p.MinVotes > 10 {
			p.MinVotes = 10
		}
	}
	return p
}

// currentQuarterWindow returns the first and last day of the calendar
// quarter containing t, in catalog date format.
func currentQuarterWindow(t time.Time) (string, string) {
	q := (int(t.Month()) - 1) / 3
	start := time.Date(t.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, -1)
	return start.Format("2006-01-02"), end.Format("2006-01-02")
}
