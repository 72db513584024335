package orchestrator

import (
	"fmt"
	"strings"

	"github.com/mkarvo/reelscout/internal/models"
)

const (
	listOverviewLimit   = 150
	detailOverviewLimit = 200
)

// answerSection is one titled group of results in a sectioned answer.
type answerSection struct {
	Title     string
	MediaType models.MediaType
	Items     []models.MediaItem
}

// formatItems renders a numbered result list under a header line.
func (o *Orchestrator) formatItems(header string, mt models.MediaType, items []models.MediaItem) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	for i, it := range items {
		b.WriteString(o.itemLine(i+1, mt, it))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (o *Orchestrator) formatSections(sections []answerSection) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		parts = append(parts, o.formatItems(s.Title+":", s.MediaType, s.Items))
	}
	return strings.Join(parts, "\n\n")
}

func (o *Orchestrator) itemLine(idx int, mt models.MediaType, it models.MediaItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", idx, it.DisplayTitle())
	if orig := it.OriginalDisplayTitle(); orig != "" && orig != it.DisplayTitle() {
		fmt.Fprintf(&b, " (%s)", orig)
	}
	if y := it.Year(); y != "" {
		fmt.Fprintf(&b, " (%s)", y)
	}
	if names := o.genreNames(mt, it.GenreIDs); len(names) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(names, ", "))
	}
	if it.VoteCount > 0 {
		fmt.Fprintf(&b, " %.1f/10 (%d votes)", it.VoteAverage, it.VoteCount)
	}
	b.WriteString("\n")
	if ov := truncateText(it.Overview, listOverviewLimit); ov != "" {
		fmt.Fprintf(&b, "   %s\n", ov)
	}
	return b.String()
}

func (o *Orchestrator) formatDetails(d *models.ItemDetails) string {
	var b strings.Builder
	b.WriteString(d.DisplayTitle())
	if y := d.Year(); y != "" {
		fmt.Fprintf(&b, " (%s)", y)
	}
	b.WriteString("\n")

	if len(d.Genres) > 0 {
		names := make([]string, len(d.Genres))
		for i, g := range d.Genres {
			names[i] = g.Name
		}
		fmt.Fprintf(&b, "Genres: %s\n", strings.Join(names, ", "))
	}
	if d.VoteCount > 0 {
		fmt.Fprintf(&b, "Rating: %.1f/10 (%d votes)\n", d.VoteAverage, d.VoteCount)
	}
	if d.Runtime > 0 {
		fmt.Fprintf(&b, "Runtime: %d min\n", d.Runtime)
	}
	if d.Seasons > 0 {
		fmt.Fprintf(&b, "Seasons: %d (%d episodes)\n", d.Seasons, d.Episodes)
	}
	if d.Tagline != "" {
		fmt.Fprintf(&b, "%q\n", d.Tagline)
	}
	if ov := truncateText(d.Overview, detailOverviewLimit); ov != "" {
		b.WriteString(ov)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (o *Orchestrator) formatPerson(p *models.Person) string {
	var b strings.Builder
	b.WriteString(p.Name)
	if p.KnownForDepartment != "" {
		fmt.Fprintf(&b, " (%s)", p.KnownForDepartment)
	}
	b.WriteString("\n")
	if p.Birthday != "" {
		fmt.Fprintf(&b, "Born: %s", p.Birthday)
		if p.PlaceOfBirth != "" {
			fmt.Fprintf(&b, ", %s", p.PlaceOfBirth)
		}
		b.WriteString("\n")
	}
	if bio := truncateText(p.Biography, detailOverviewLimit); bio != "" {
		b.WriteString(bio)
		b.WriteString("\n")
	}
	if len(p.KnownFor) > 0 {
		b.WriteString("\nKnown for:\n")
		for i, it := range p.KnownFor {
			mt := models.MediaType(it.MediaType)
			if !mt.Valid() {
				mt = models.MediaMovie
			}
			b.WriteString(o.itemLine(i+1, mt, it))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (o *Orchestrator) genreNames(mt models.MediaType, ids []int) []string {
	var names []string
	for _, id := range ids {
		if name := o.vocab.GenreName(mt, id); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// truncateText shortens s to at most n runes on a word boundary.
func truncateText(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}
