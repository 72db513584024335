package models

import (
	"strings"
	"sync"
)

// Vocabulary holds the catalog value lists (genres per media type, watch
// providers, certifications) loaded once at startup. Reads vastly outnumber
// writes; everything is guarded for interleaved access across requests.
type Vocabulary struct {
	mu             sync.RWMutex
	genres         map[MediaType][]Genre
	providers      []Provider
	certifications map[MediaType][]Certification
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		genres:         make(map[MediaType][]Genre),
		certifications: make(map[MediaType][]Certification),
	}
}

func (v *Vocabulary) SetGenres(mt MediaType, genres []Genre) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.genres[mt] = append([]Genre(nil), genres...)
}

func (v *Vocabulary) Genres(mt MediaType) []Genre {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Genre(nil), v.genres[mt]...)
}

// GenreID resolves a genre name case-insensitively. Returns 0 when unknown.
func (v *Vocabulary) GenreID(mt MediaType, name string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, g := range v.genres[mt] {
		if strings.EqualFold(g.Name, name) {
			return g.ID
		}
	}
	return 0
}

func (v *Vocabulary) GenreName(mt MediaType, id int) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, g := range v.genres[mt] {
		if g.ID == id {
			return g.Name
		}
	}
	return ""
}

func (v *Vocabulary) SetProviders(providers []Provider) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.providers = append([]Provider(nil), providers...)
}

func (v *Vocabulary) Providers() []Provider {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Provider(nil), v.providers...)
}

// ProviderID resolves a provider name case-insensitively. Returns 0 when
// unknown.
func (v *Vocabulary) ProviderID(name string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, p := range v.providers {
		if strings.EqualFold(p.Name, name) {
			return p.ID
		}
	}
	return 0
}

func (v *Vocabulary) SetCertifications(mt MediaType, certs []Certification) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.certifications[mt] = append([]Certification(nil), certs...)
}

func (v *Vocabulary) Certifications(mt MediaType) []Certification {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]Certification(nil), v.certifications[mt]...)
}

// KeywordCache maps lower-cased keyword strings to catalog keyword ids. It
// grows monotonically for the life of the process; double-writing the same
// key from concurrent requests is harmless because values are idempotent.
type KeywordCache struct {
	mu      sync.RWMutex
	entries map[string]int
}

func NewKeywordCache() *KeywordCache {
	return &KeywordCache{entries: make(map[string]int)}
}

func (c *KeywordCache) Get(term string) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.entries[strings.ToLower(term)]
	return id, ok
}

func (c *KeywordCache) Put(term string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[strings.ToLower(term)] = id
}

func (c *KeywordCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
