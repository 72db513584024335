package models

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindDiscover  Kind = "discover"
	KindSimilarTo Kind = "similar_to"
	KindFranchise Kind = "franchise"
	KindLookup    Kind = "lookup"
	KindPerson    Kind = "person"
	KindTrending  Kind = "trending"
)

func (k Kind) Valid() bool {
	switch k {
	case KindDiscover, KindSimilarTo, KindFranchise, KindLookup, KindPerson, KindTrending:
		return true
	}
	return false
}

type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

func (m MediaType) Valid() bool {
	return m == MediaMovie || m == MediaTV
}

type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

func (c Confidence) Valid() bool {
	return c == ConfidenceHigh || c == ConfidenceLow
}

type TimeWindow string

const (
	WindowDay  TimeWindow = "day"
	WindowWeek TimeWindow = "week"
)

// DefaultSortOrder is what the classifier emits when the query expresses no
// ranking preference. The postprocessor only rewrites the sort when it is
// still at this value.
const DefaultSortOrder = "popularity.desc"

const DefaultMinVoteCount = 100

// Intent is the structured interpretation of one query. Exactly one payload
// pointer is non-nil and it matches Kind; the unexported fields of the JSON
// form enforce that on decode.
type Intent struct {
	Kind       Kind       `json:"kind"`
	MediaType  MediaType  `json:"media_type"`
	Confidence Confidence `json:"confidence"`

	Discover  *DiscoverIntent  `json:"discover,omitempty"`
	Similar   *SimilarIntent   `json:"similar_to,omitempty"`
	Franchise *FranchiseIntent `json:"franchise,omitempty"`
	Lookup    *LookupIntent    `json:"lookup,omitempty"`
	Person    *PersonIntent    `json:"person,omitempty"`
	Trending  *TrendingIntent  `json:"trending,omitempty"`
}

type DiscoverIntent struct {
	Genres           []string `json:"genres"`
	Keywords         []string `json:"keywords"`
	Year             int      `json:"year,omitempty"`
	YearFrom         int      `json:"year_from,omitempty"`
	YearTo           int      `json:"year_to,omitempty"`
	MinRating        float64  `json:"min_rating,omitempty"`
	OriginalLanguage string   `json:"original_language,omitempty"`
	SortOrder        string   `json:"sort_order,omitempty"`
	MinVoteCount     int      `json:"min_vote_count,omitempty"`
	AiringNow        bool     `json:"airing_now,omitempty"`
	BothTypes        bool     `json:"both_types,omitempty"`
	ActorOrDirector  string   `json:"actor_or_director_name,omitempty"`
	WatchProviders   []string `json:"watch_providers"`
}

type SimilarIntent struct {
	ReferenceTitles  []string `json:"reference_titles"`
	Genres           []string `json:"genres"`
	Keywords         []string `json:"keywords"`
	YearFrom         int      `json:"year_from,omitempty"`
	YearTo           int      `json:"year_to,omitempty"`
	MinRating        float64  `json:"min_rating,omitempty"`
	OriginalLanguage string   `json:"original_language,omitempty"`
	WatchProviders   []string `json:"watch_providers"`
}

type FranchiseIntent struct {
	Query string `json:"franchise_query"`
}

type LookupIntent struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

type PersonIntent struct {
	Name string `json:"person_name"`
}

type TrendingIntent struct {
	TimeWindow TimeWindow `json:"time_window"`
}

// Validate checks the closed value sets and that exactly one payload is set
// and it matches Kind.
func (in *Intent) Validate() error {
	if !in.Kind.Valid() {
		return fmt.Errorf("invalid intent kind %q", in.Kind)
	}
	if !in.MediaType.Valid() {
		return fmt.Errorf("invalid media type %q", in.MediaType)
	}
	if !in.Confidence.Valid() {
		return fmt.Errorf("invalid confidence %q", in.Confidence)
	}
	set := 0
	payloads := map[Kind]bool{
		KindDiscover:  in.Discover != nil,
		KindSimilarTo: in.Similar != nil,
		KindFranchise: in.Franchise != nil,
		KindLookup:    in.Lookup != nil,
		KindPerson:    in.Person != nil,
		KindTrending:  in.Trending != nil,
	}
	for _, present := range payloads {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("intent carries %d payloads, want exactly 1", set)
	}
	if !payloads[in.Kind] {
		return fmt.Errorf("intent payload does not match kind %q", in.Kind)
	}
	if in.Trending != nil {
		if w := in.Trending.TimeWindow; w != WindowDay && w != WindowWeek {
			return fmt.Errorf("invalid time window %q", w)
		}
	}
	return nil
}

// ParseIntent decodes the canonical JSON form, rejecting unknown enum values
// and mismatched payloads.
func ParseIntent(data []byte) (*Intent, error) {
	var in Intent
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decoding intent: %w", err)
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &in, nil
}

// Canonical serializes the intent to its canonical JSON form. The form is
// lossless: ParseIntent(in.Canonical()) equals in field for field.
func (in *Intent) Canonical() ([]byte, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(in)
}
