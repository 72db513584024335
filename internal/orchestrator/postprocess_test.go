package orchestrator

import (
	"reflect"
	"testing"

	"github.com/mkarvo/reelscout/internal/models"
)

func discoverIntent(mutate func(*models.DiscoverIntent)) *models.Intent {
	in := &models.Intent{
		Kind:       models.KindDiscover,
		MediaType:  models.MediaMovie,
		Confidence: models.ConfidenceHigh,
		Discover: &models.DiscoverIntent{
			Genres:         []string{},
			Keywords:       []string{},
			WatchProviders: []string{},
			SortOrder:      models.DefaultSortOrder,
			MinVoteCount:   models.DefaultMinVoteCount,
		},
	}
	if mutate != nil {
		mutate(in.Discover)
	}
	return in
}

func TestPostprocess_AiringNowForcesTV(t *testing.T) {
	tests := []struct {
		name      string
		mediaType models.MediaType
	}{
		{"movie becomes tv", models.MediaMovie},
		{"tv stays tv", models.MediaTV},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := discoverIntent(func(d *models.DiscoverIntent) { d.AiringNow = true })
			in.MediaType = tt.mediaType

			out := Postprocess(in, "what is airing right now")
			if out.MediaType != models.MediaTV {
				t.Errorf("MediaType = %q, want tv", out.MediaType)
			}
		})
	}
}

func TestPostprocess_AnimationGenreImpliesJapanese(t *testing.T) {
	in := discoverIntent(func(d *models.DiscoverIntent) {
		d.Genres = []string{"Animation"}
	})

	out := Postprocess(in, "good animated films")
	if out.Discover.OriginalLanguage != "ja" {
		t.Errorf("OriginalLanguage = %q, want ja", out.Discover.OriginalLanguage)
	}
}

func TestPostprocess_AnimeTokensSetLanguageAndGenre(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"anime", "dark anime from the 90s"},
		{"anime inflection", "parhaat animet"},
		{"isekai", "isekai with a twist"},
		{"shounen", "classic shounen"},
		{"shonen spelling", "classic shonen"},
		{"seinen", "seinen recommendations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := discoverIntent(nil)
			out := Postprocess(in, tt.query)
			if out.Discover.OriginalLanguage != "ja" {
				t.Errorf("OriginalLanguage = %q, want ja", out.Discover.OriginalLanguage)
			}
			if !reflect.DeepEqual(out.Discover.Genres, []string{"Animation"}) {
				t.Errorf("Genres = %v, want [Animation]", out.Discover.Genres)
			}
		})
	}
}

func TestPostprocess_AnimeRuleKeepsExistingGenres(t *testing.T) {
	in := discoverIntent(func(d *models.DiscoverIntent) {
		d.Genres = []string{"Horror"}
	})

	out := Postprocess(in, "horror anime")
	if !reflect.DeepEqual(out.Discover.Genres, []string{"Horror"}) {
		t.Errorf("Genres = %v, want [Horror]", out.Discover.Genres)
	}
	if out.Discover.OriginalLanguage != "ja" {
		t.Errorf("OriginalLanguage = %q, want ja", out.Discover.OriginalLanguage)
	}
}

func TestPostprocess_SeriesTokensForceTV(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"series", "crime series"},
		{"show", "a good show"},
		{"shows", "comedy shows"},
		{"tv", "tv thrillers"},
		{"sitcom", "classic sitcoms"},
		{"finnish inflection", "hyviä sarjoja"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := discoverIntent(nil)
			out := Postprocess(in, tt.query)
			if out.MediaType != models.MediaTV {
				t.Errorf("MediaType = %q, want tv", out.MediaType)
			}
		})
	}
}

func TestPostprocess_LanguagePhrases(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"korean thrillers", "ko"},
		{"k-drama about chefs", "ko"},
		{"bollywood musicals", "hi"},
		{"french new wave", "fr"},
		{"spanish horror", "es"},
		{"italian crime films", "it"},
		{"japanese dramas", "ja"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			in := discoverIntent(nil)
			out := Postprocess(in, tt.query)
			if out.Discover.OriginalLanguage != tt.want {
				t.Errorf("OriginalLanguage = %q, want %q", out.Discover.OriginalLanguage, tt.want)
			}
		})
	}
}

func TestPostprocess_NeverOverridesClassifierLanguage(t *testing.T) {
	in := discoverIntent(func(d *models.DiscoverIntent) {
		d.OriginalLanguage = "fr"
	})

	out := Postprocess(in, "korean drama with a dark twist")
	if out.Discover.OriginalLanguage != "fr" {
		t.Errorf("OriginalLanguage = %q, want fr (classifier value kept)", out.Discover.OriginalLanguage)
	}
}

func TestPostprocess_StyleKeywordsAreAdditive(t *testing.T) {
	in := discoverIntent(func(d *models.DiscoverIntent) {
		d.Keywords = []string{"heist", "revenge"}
	})

	out := Postprocess(in, "dark revenge thrillers")

	want := []string{"heist", "revenge", "dark fantasy"}
	if !reflect.DeepEqual(out.Discover.Keywords, want) {
		t.Errorf("Keywords = %v, want %v", out.Discover.Keywords, want)
	}
}

func TestPostprocess_SortRules(t *testing.T) {
	tests := []struct {
		query    string
		wantSort string
		wantMin  int
	}{
		{"best heist movies", "vote_average.desc", 500},
		{"classic westerns", "vote_average.desc", 500},
		{"newest releases", "release_date.desc", 100},
		{"underrated gems", "vote_average.desc", 50},
		{"hidden gem horror", "vote_average.desc", 30},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			in := discoverIntent(nil)
			out := Postprocess(in, tt.query)
			if out.Discover.SortOrder != tt.wantSort {
				t.Errorf("SortOrder = %q, want %q", out.Discover.SortOrder, tt.wantSort)
			}
			if out.Discover.MinVoteCount != tt.wantMin {
				t.Errorf("MinVoteCount = %d, want %d", out.Discover.MinVoteCount, tt.wantMin)
			}
		})
	}
}

func TestPostprocess_ExplicitSortNeverOverridden(t *testing.T) {
	in := discoverIntent(func(d *models.DiscoverIntent) {
		d.SortOrder = "release_date.desc"
		d.MinVoteCount = 25
	})

	out := Postprocess(in, "best classics ever")
	if out.Discover.SortOrder != "release_date.desc" {
		t.Errorf("SortOrder = %q, want release_date.desc (classifier value kept)", out.Discover.SortOrder)
	}
	if out.Discover.MinVoteCount != 25 {
		t.Errorf("MinVoteCount = %d, want 25", out.Discover.MinVoteCount)
	}
}

func TestPostprocess_KoreanSeriesScenario(t *testing.T) {
	// Both the language rule and the series rule fire independently, even
	// when the classifier said movie.
	in := discoverIntent(func(d *models.DiscoverIntent) {
		d.Keywords = []string{}
	})
	in.MediaType = models.MediaMovie

	out := Postprocess(in, "korealaisia romanttisia sarjoja")

	if out.Discover.OriginalLanguage != "ko" {
		t.Errorf("OriginalLanguage = %q, want ko", out.Discover.OriginalLanguage)
	}
	if out.MediaType != models.MediaTV {
		t.Errorf("MediaType = %q, want tv", out.MediaType)
	}
	if !reflect.DeepEqual(out.Discover.Keywords, []string{"romance"}) {
		t.Errorf("Keywords = %v, want [romance]", out.Discover.Keywords)
	}
}

func TestPostprocess_SimilarIntentGetsLanguageAndKeywords(t *testing.T) {
	in := &models.Intent{
		Kind:       models.KindSimilarTo,
		MediaType:  models.MediaMovie,
		Confidence: models.ConfidenceHigh,
		Similar: &models.SimilarIntent{
			ReferenceTitles: []string{"Oldboy"},
			Keywords:        []string{"neo-noir"},
		},
	}

	out := Postprocess(in, "korean revenge movies like Oldboy")

	if out.Similar.OriginalLanguage != "ko" {
		t.Errorf("OriginalLanguage = %q, want ko", out.Similar.OriginalLanguage)
	}
	want := []string{"neo-noir", "revenge"}
	if !reflect.DeepEqual(out.Similar.Keywords, want) {
		t.Errorf("Keywords = %v, want %v", out.Similar.Keywords, want)
	}
}

func TestPostprocess_PureFunction(t *testing.T) {
	in := discoverIntent(func(d *models.DiscoverIntent) {
		d.Keywords = []string{"heist"}
	})

	Postprocess(in, "dark korean series airing now")

	if in.MediaType != models.MediaMovie {
		t.Error("input media type mutated")
	}
	if in.Discover.OriginalLanguage != "" {
		t.Error("input language mutated")
	}
	if !reflect.DeepEqual(in.Discover.Keywords, []string{"heist"}) {
		t.Errorf("input keywords mutated: %v", in.Discover.Keywords)
	}
}

func TestPostprocess_NoOpForLookup(t *testing.T) {
	in := &models.Intent{
		Kind:       models.KindLookup,
		MediaType:  models.MediaMovie,
		Confidence: models.ConfidenceHigh,
		Lookup:     &models.LookupIntent{Title: "Dark City"},
	}

	out := Postprocess(in, "tell me about Dark City")
	if out.Lookup.Title != "Dark City" {
		t.Errorf("Title = %q, want Dark City", out.Lookup.Title)
	}
	if out.MediaType != models.MediaMovie {
		t.Errorf("MediaType = %q, want movie", out.MediaType)
	}
}
