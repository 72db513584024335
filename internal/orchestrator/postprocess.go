package orchestrator

import (
	"regexp"
	"strings"

	"github.com/mkarvo/reelscout/internal/models"
)

// The postprocessor corrects known classifier failure patterns with a fixed,
// ordered rule set over the raw query text. Each rule is conditionally a
// no-op; later rules read state accumulated by earlier ones, so the order is
// a contract.

var (
	animeTokenRe  = regexp.MustCompile(`(?i)\banime\w*\b|\bisekai\b|\bseinen\b|\bsho(?:u)?nen\b`)
	seriesTokenRe = regexp.MustCompile(`(?i)\bseries\b|\bshows?\b|\btv\b|\bsitcoms?\b|\bsarj\w*`)
)

// languageRule maps nationality/style phrases to an ISO 639-1 code. First
// match wins.
type languageRule struct {
	phrases []string
	code    string
}

var languageRules = []languageRule{
	{[]string{"k-drama", "kdrama", "korean", "korealai"}, "ko"},
	{[]string{"bollywood", "indian", "intialai"}, "hi"},
	{[]string{"french", "ranskalai"}, "fr"},
	{[]string{"spanish", "espanjalai"}, "es"},
	{[]string{"italian", "italialai"}, "it"},
	{[]string{"japanese", "japanilai"}, "ja"},
}

// styleRule maps a style phrase to catalog keyword names. All matching rules
// fire; derived keywords are appended after the classifier's own.
type styleRule struct {
	phrases  []string
	keywords []string
}

var styleRules = []styleRule{
	{[]string{"dark", "synkk"}, []string{"dark fantasy"}},
	{[]string{"revenge", "kosto"}, []string{"revenge"}},
	{[]string{"psychological", "psykologi"}, []string{"psychological"}},
	{[]string{"isekai"}, []string{"isekai", "parallel world"}},
	{[]string{"time travel", "aikamatk"}, []string{"time travel"}},
	{[]string{"cyberpunk"}, []string{"cyberpunk"}},
	{[]string{"dystopi"}, []string{"dystopia"}},
	{[]string{"noir"}, []string{"neo-noir"}},
	{[]string{"twist", "juonenkää"}, []string{"twist ending"}},
	{[]string{"true story", "tositapahtum"}, []string{"based on true story"}},
	{[]string{"shounen", "shonen"}, []string{"shounen"}},
	{[]string{"seinen"}, []string{"seinen"}},
	{[]string{"mecha"}, []string{"mecha"}},
	{[]string{"mature"}, []string{"josei", "seinen"}},
	{[]string{"romantic", "romance", "romanttis"}, []string{"romance"}},
}

// sortRule maps quality/recency phrases to a sort order and vote floor. Only
// applied when the classifier left the sort at its default; first match wins.
type sortRule struct {
	phrases  []string
	sortBy   string
	minVotes int
}

var sortRules = []sortRule{
	{[]string{"best", "classic", "must see", "paras", "parhaat", "klassik"}, "vote_average.desc", 500},
	{[]string{"most popular", "suosituim"}, "popularity.desc", 100},
	{[]string{"newest", "latest", "uusim"}, "release_date.desc", 100},
	{[]string{"underrated", "lesser known", "aliarvostet"}, "vote_average.desc", 50},
	{[]string{"hidden gem", "piilotet"}, "vote_average.desc", 30},
}

// Postprocess applies the ordered correction rules and returns a new intent.
// It is pure: the input is never mutated and no I/O happens here.
func Postprocess(in *models.Intent, query string) *models.Intent {
	out := cloneIntent(in)
	text := strings.ToLower(query)

	// 1. Only series air; a request for what is airing now is a tv request.
	if out.Discover != nil && out.Discover.AiringNow {
		out.MediaType = models.MediaTV
	}

	// 2. An explicit animation genre with no language usually means anime.
	if lang := language(out); lang == "" && hasGenre(out, "animation") {
		setLanguage(out, "ja")
	}

	// 3. Anime style tokens in the raw text imply Japanese, and animation
	// when no genre was picked.
	if language(out) == "" && animeTokenRe.MatchString(text) {
		setLanguage(out, "ja")
		if len(genres(out)) == 0 {
			setGenres(out, []string{"Animation"})
		}
	}

	// 4. Series-referring tokens force tv.
	if out.MediaType != models.MediaTV && seriesTokenRe.MatchString(text) {
		out.MediaType = models.MediaTV
	}

	// 5. Nationality/style phrases imply an original language.
	if language(out) == "" {
		for _, rule := range languageRules {
			if containsAny(text, rule.phrases) {
				setLanguage(out, rule.code)
				break
			}
		}
	}

	// 6. Style phrases contribute keywords, appended after the classifier's
	// own, deduplicated.
	var derived []string
	for _, rule := range styleRules {
		if containsAny(text, rule.phrases) {
			derived = append(derived, rule.keywords...)
		}
	}
	if len(derived) > 0 {
		setKeywords(out, appendUnique(keywords(out), derived))
	}

	// 7. Quality/recency phrases set the sort, but only when the classifier
	// left the default untouched.
	if d := out.Discover; d != nil && (d.SortOrder == "" || d.SortOrder == models.DefaultSortOrder) {
		for _, rule := range sortRules {
			if containsAny(text, rule.phrases) {
				d.SortOrder = rule.sortBy
				d.MinVoteCount = rule.minVotes
				break
			}
		}
	}

	return out
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func appendUnique(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing)+len(extra))
	out := make([]string, 0, len(existing)+len(extra))
	for _, s := range existing {
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}
	for _, s := range extra {
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

// Payload accessors. Language, genre and keyword corrections apply to the
// discover and similar payloads; the other kinds carry none of these fields.

func language(in *models.Intent) string {
	switch {
	case in.Discover != nil:
		return in.Discover.OriginalLanguage
	case in.Similar != nil:
		return in.Similar.OriginalLanguage
	}
	return ""
}

func setLanguage(in *models.Intent, code string) {
	switch {
	case in.Discover != nil:
		in.Discover.OriginalLanguage = code
	case in.Similar != nil:
		in.Similar.OriginalLanguage = code
	}
}

func genres(in *models.Intent) []string {
	switch {
	case in.Discover != nil:
		return in.Discover.Genres
	case in.Similar != nil:
		return in.Similar.Genres
	}
	return nil
}

func setGenres(in *models.Intent, g []string) {
	switch {
	case in.Discover != nil:
		in.Discover.Genres = g
	case in.Similar != nil:
		in.Similar.Genres = g
	}
}

func hasGenre(in *models.Intent, name string) bool {
	for _, g := range genres(in) {
		if strings.EqualFold(g, name) {
			return true
		}
	}
	return false
}

func keywords(in *models.Intent) []string {
	switch {
	case in.Discover != nil:
		return in.Discover.Keywords
	case in.Similar != nil:
		return in.Similar.Keywords
	}
	return nil
}

func setKeywords(in *models.Intent, k []string) {
	switch {
	case in.Discover != nil:
		in.Discover.Keywords = k
	case in.Similar != nil:
		in.Similar.Keywords = k
	}
}

func cloneIntent(in *models.Intent) *models.Intent {
	out := *in
	if in.Discover != nil {
		d := *in.Discover
		d.Genres = append([]string(nil), in.Discover.Genres...)
		d.Keywords = append([]string(nil), in.Discover.Keywords...)
		d.WatchProviders = append([]string(nil), in.Discover.WatchProviders...)
		out.Discover = &d
	}
	if in.Similar != nil {
		s := *in.Similar
		s.ReferenceTitles = append([]string(nil), in.Similar.ReferenceTitles...)
		s.Genres = append([]string(nil), in.Similar.Genres...)
		s.Keywords = append([]string(nil), in.Similar.Keywords...)
		s.WatchProviders = append([]string(nil), in.Similar.WatchProviders...)
		out.Similar = &s
	}
	if in.Franchise != nil {
		f := *in.Franchise
		out.Franchise = &f
	}
	if in.Lookup != nil {
		l := *in.Lookup
		out.Lookup = &l
	}
	if in.Person != nil {
		p := *in.Person
		out.Person = &p
	}
	if in.Trending != nil {
		tr := *in.Trending
		out.Trending = &tr
	}
	return &out
}
