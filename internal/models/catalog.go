package models

type MediaItem struct {
	ID               int     `json:"id"`
	Title            string  `json:"title,omitempty"`
	Name             string  `json:"name,omitempty"`
	OriginalTitle    string  `json:"original_title,omitempty"`
	OriginalName     string  `json:"original_name,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	FirstAirDate     string  `json:"first_air_date,omitempty"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	Popularity       float64 `json:"popularity"`
	GenreIDs         []int   `json:"genre_ids,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	MediaType        string  `json:"media_type,omitempty"`
}

// DisplayTitle returns the movie title or series name, whichever is set.
func (m MediaItem) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

// OriginalDisplayTitle returns the title in the work's original language,
// or "" when the catalog supplied none.
func (m MediaItem) OriginalDisplayTitle() string {
	if m.OriginalTitle != "" {
		return m.OriginalTitle
	}
	return m.OriginalName
}

// Year returns the four-digit release year, or "" when unknown.
func (m MediaItem) Year() string {
	d := m.ReleaseDate
	if d == "" {
		d = m.FirstAirDate
	}
	if len(d) < 4 {
		return ""
	}
	return d[:4]
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Keyword struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Provider struct {
	ID   int    `json:"provider_id"`
	Name string `json:"provider_name"`
}

type Certification struct {
	Code    string `json:"certification"`
	Meaning string `json:"meaning"`
}

type Person struct {
	ID                 int         `json:"id"`
	Name               string      `json:"name"`
	KnownForDepartment string      `json:"known_for_department,omitempty"`
	Biography          string      `json:"biography,omitempty"`
	Birthday           string      `json:"birthday,omitempty"`
	PlaceOfBirth       string      `json:"place_of_birth,omitempty"`
	Popularity         float64     `json:"popularity"`
	KnownFor           []MediaItem `json:"known_for,omitempty"`
}

type ItemDetails struct {
	MediaItem
	Genres     []Genre `json:"genres,omitempty"`
	Runtime    int     `json:"runtime,omitempty"`
	Tagline    string  `json:"tagline,omitempty"`
	Status     string  `json:"status,omitempty"`
	Seasons    int     `json:"number_of_seasons,omitempty"`
	Episodes   int     `json:"number_of_episodes,omitempty"`
	Homepage   string  `json:"homepage,omitempty"`
	IMDBID     string  `json:"imdb_id,omitempty"`
}

// ResolvedReference is one catalog match standing in for a user-named title
// during a similar-to request.
type ResolvedReference struct {
	ID               int
	Name             string
	Overview         string
	OriginalLanguage string
	PrimaryGenreID   int
	KeywordIDs       []int
	KeywordNames     []string
}

// Answer is the formatted outcome of one search request.
type Answer struct {
	Query       string      `json:"query"`
	Kind        string      `json:"kind"`
	Text        string      `json:"text"`
	Items       []MediaItem `json:"items,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
	CacheHit    bool        `json:"cache_hit"`
	TookMs      int64       `json:"took_ms"`
	RequestID   string      `json:"request_id,omitempty"`
}
