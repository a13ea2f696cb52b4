package survey

import "fmt"

// Phase tags a batch of questions with the behavioral directive that shaped
// its generation.
type Phase string

const (
	PhaseExploration Phase = "exploration"
	PhaseReframing   Phase = "reframing"
	PhaseDeepDive    Phase = "deep-dive"
)

// BatchSize is the number of questions grouped under one generation call and
// one subsequent analysis.
const BatchSize = 5

var phaseCycle = [3]Phase{PhaseExploration, PhaseReframing, PhaseDeepDive}

// PhaseRange assigns a phase to a contiguous span of 1-based question indices.
type PhaseRange struct {
	Start int   `json:"start"`
	End   int   `json:"end"`
	Phase Phase `json:"phase"`
}

// BuildPhaseProfile partitions [1, reportTarget] into batch-sized ranges and
// assigns each a phase. The first two batches are always exploration; later
// batches cycle exploration, reframing, deep-dive.
func BuildPhaseProfile(reportTarget int) ([]PhaseRange, error) {
	if reportTarget <= 0 || reportTarget%BatchSize != 0 {
		return nil, fmt.Errorf("report target must be a positive multiple of %d, got %d", BatchSize, reportTarget)
	}
	batches := reportTarget / BatchSize
	profile := make([]PhaseRange, 0, batches)
	for i := 0; i < batches; i++ {
		phase := PhaseExploration
		if i >= 2 {
			phase = phaseCycle[(i-2)%len(phaseCycle)]
		}
		profile = append(profile, PhaseRange{
			Start: i*BatchSize + 1,
			End:   (i + 1) * BatchSize,
			Phase: phase,
		})
	}
	return profile, nil
}

// PhaseForIndex resolves the phase for any positive question index. Indices
// beyond the profile's span wrap back onto it, so continuation past the
// report target keeps cycling the same phases.
func PhaseForIndex(index int, profile []PhaseRange) Phase {
	if index <= 0 || len(profile) == 0 {
		return PhaseExploration
	}
	maxEnd := profile[len(profile)-1].End
	if maxEnd <= 0 {
		return PhaseExploration
	}
	normalized := index
	if normalized > maxEnd {
		normalized = (index-1)%maxEnd + 1
	}
	for _, r := range profile {
		if normalized >= r.Start && normalized <= r.End {
			return r.Phase
		}
	}
	return PhaseExploration
}

// PolicyText returns the behavioral directive embedded verbatim in the
// question-generation prompt for a phase.
func PolicyText(phase Phase) string {
	switch phase {
	case PhaseReframing:
		return "Revisit topics that earlier questions already covered, but from a different angle: " +
			"shift the subject, the timeframe, the surrounding conditions, or the role the respondent plays in them. " +
			"The goal is to surface answers the first framing could not reach."
	case PhaseDeepDive:
		return "Pursue the topics the respondent has already opened. Follow conditional branches " +
			"(\"if that were not possible...\", \"when that fails...\") and probe the reasoning underneath " +
			"earlier answers rather than introducing new subjects."
	default:
		return "Maximize topic coverage. Prefer breadth over depth: each question should open a subject " +
			"not yet touched by the history, so the widest possible picture of the respondent emerges early."
	}
}
