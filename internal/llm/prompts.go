package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mkarvo/reelscout/internal/models"
)

const maxPromptExamples = 10

const classifierInstructions = `You classify free-text media search queries into a structured intent.

Respond with a single JSON object and nothing else. Fields:
- "kind": one of "discover", "similar_to", "franchise", "lookup", "person", "trending"
- "media_type": "movie" or "tv" (always required, no other value)
- "confidence": "high" or "low" ("low" when the query is too vague to act on)
- "genres": list of genre names taken verbatim from the lists below
- "keywords": list of short free-text descriptors not covered by genres
- "year", "year_from", "year_to": integers, omit when not stated
- "min_rating": minimum score 0-10, omit when not stated
- "original_language": ISO 639-1 code, only when the query implies one
- "sort_order": "popularity.desc", "vote_average.desc" or "release_date.desc"
- "min_vote_count": integer vote floor
- "airing_now": true only for series currently on the air
- "both_types": true when the user wants movies and series together
- "actor_or_director_name": a person whose work should be discovered
- "watch_providers": streaming service names from the list below, in the order mentioned
- "reference_titles": titles the user wants results similar to (kind "similar_to")
- "title": the exact title to look up (kind "lookup")
- "person_name": the person asked about (kind "person")
- "franchise_query": the franchise name (kind "franchise")
- "time_window": "day" or "week" (kind "trending")

Pick "similar_to" whenever the user names one or more works and asks for more
like them. Pick "franchise" when they want every entry of a named series of
works. Pick "lookup" for a single specific title, "person" for questions about
a person, "trending" for what is popular right now, and "discover" otherwise.`

func (c *Classifier) buildPrompt(ctx context.Context, query string) string {
	var sb strings.Builder
	sb.WriteString(classifierInstructions)
	sb.WriteString("\n\nMovie genres: ")
	sb.WriteString(joinGenreNames(c.vocab.Genres(models.MediaMovie)))
	sb.WriteString("\nTV genres: ")
	sb.WriteString(joinGenreNames(c.vocab.Genres(models.MediaTV)))
	sb.WriteString("\nWatch providers: ")
	sb.WriteString(joinProviderNames(c.vocab.Providers()))
	sb.WriteString("\nCurrent date: ")
	sb.WriteString(c.now().Format("2006-01-02"))

	sb.WriteString("\n\nExamples:\n")
	sb.WriteString(builtinExamples)
	for _, ex := range c.recentExamples(ctx) {
		fmt.Fprintf(&sb, "Query: %s\nIntent: %s\n", ex.Query, ex.Intent)
	}

	fmt.Fprintf(&sb, "\nQuery: %s\nIntent:", query)
	return sb.String()
}

func (c *Classifier) recentExamples(ctx context.Context) []models.TrainingExample {
	if c.examples == nil {
		return nil
	}
	examples, err := c.examples.RecentExamples(ctx, maxPromptExamples)
	if err != nil {
		c.logger.Warn("loading training examples failed, continuing without", zap.Error(err))
		return nil
	}
	return examples
}

const builtinExamples = `Query: dark korean revenge thrillers
Intent: {"kind":"discover","media_type":"movie","confidence":"high","genres":["Thriller"],"keywords":["revenge"],"original_language":"ko"}
Query: something like Oldboy and I Saw the Devil
Intent: {"kind":"similar_to","media_type":"movie","confidence":"high","reference_titles":["Oldboy","I Saw the Devil"],"keywords":["revenge"]}
Query: all the james bond movies
Intent: {"kind":"franchise","media_type":"movie","confidence":"high","franchise_query":"james bond"}
Query: what is trending this week
Intent: {"kind":"trending","media_type":"movie","confidence":"high","time_window":"week"}
Query: who is Park Chan-wook
Intent: {"kind":"person","media_type":"movie","confidence":"high","person_name":"Park Chan-wook"}
Query: tell me about Heat from 1995
Intent: {"kind":"lookup","media_type":"movie","confidence":"high","title":"Heat","year":1995}
Query: anything good
Intent: {"kind":"discover","media_type":"movie","confidence":"low"}
`

const rerankByReferencesTemplate = `You rank media recommendations by how well they match reference works.

Reference works:
%s
User emphasis: %s

Candidates (id, title, year, overview):
%s

Return a JSON array of at most %d candidate ids, best match first. Judge by
shared themes, tone and style with the reference works. Output only the JSON
array.`

const rerankByCriteriaTemplate = `You rank media search results against a user request.

Request: %s

Candidates (id, title, year, overview):
%s

Return a JSON array of at most %d candidate ids, best match first. Output only
the JSON array.`

func joinGenreNames(genres []models.Genre) string {
	names := make([]string, len(genres))
	for i, g := range genres {
		names[i] = g.Name
	}
	return strings.Join(names, ", ")
}

func joinProviderNames(providers []models.Provider) string {
	names := make([]string, len(providers))
	for i, p := range providers {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

func formatReferences(refs []models.ResolvedReference) string {
	var sb strings.Builder
	for _, r := range refs {
		fmt.Fprintf(&sb, "- %s (keywords: %s)\n", r.Name, strings.Join(r.KeywordNames, ", "))
		if r.Overview != "" {
			fmt.Fprintf(&sb, "  %s\n", truncate(r.Overview, 300))
		}
	}
	return sb.String()
}

func formatCandidates(items []models.MediaItem) string {
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, "%d | %s | %s | %s\n", it.ID, it.DisplayTitle(), it.Year(), truncate(it.Overview, 200))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
