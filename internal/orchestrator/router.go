package orchestrator

import "github.com/mkarvo/reelscout/internal/models"

// ExecutionPath is the terminal state the router selects for one intent.
type ExecutionPath int

const (
	PathLowConfidence ExecutionPath = iota
	PathTrending
	PathPerson
	PathLookup
	PathSimilar
	PathFranchise
	PathBothTypes
	PathActorDiscover
	PathDiscover
)

func (p ExecutionPath) String() string {
	switch p {
	case PathLowConfidence:
		return "low_confidence"
	case PathTrending:
		return "trending"
	case PathPerson:
		return "person"
	case PathLookup:
		return "lookup"
	case PathSimilar:
		return "similar"
	case PathFranchise:
		return "franchise"
	case PathBothTypes:
		return "both_types"
	case PathActorDiscover:
		return "actor_discover"
	case PathDiscover:
		return "discover"
	default:
		return "unknown"
	}
}

// Route selects exactly one execution path for the corrected intent.
// Precedence when several conditions hold: low confidence beats everything,
// then the explicit kind, then both_types, then an actor/director name, then
// plain discover.
func Route(in *models.Intent) ExecutionPath {
	if in.Confidence == models.ConfidenceLow {
		return PathLowConfidence
	}

	switch in.Kind {
	case models.KindTrending:
		return PathTrending
	case models.KindPerson:
		return PathPerson
	case models.KindLookup:
		return PathLookup
	case models.KindSimilarTo:
		return PathSimilar
	case models.KindFranchise:
		return PathFranchise
	}

	if d := in.Discover; d != nil {
		if d.BothTypes {
			return PathBothTypes
		}
		if d.ActorOrDirector != "" {
			return PathActorDiscover
		}
	}
	return PathDiscover
}
