package survey

// IndexRange is an inclusive span of 1-based question indices.
type IndexRange struct {
	Start int
	End   int
}

// BatchRef names a completed batch and the index range it covers.
type BatchRef struct {
	Batch int
	Range IndexRange
}

// Observation is a snapshot of a session's progress, assembled by the caller
// from freshly read rows. Decide derives the controller state from it each
// time; nothing here is cached between calls.
type Observation struct {
	AnsweredCount int
	ReportTarget  int
	// ContinuedBeyondTarget is the explicit "go deeper" action for the
	// current boundary. It is supplied by the caller, never re-derived.
	ContinuedBeyondTarget bool
	// AnalysisBatches holds the batch indices that already have an analysis.
	AnalysisBatches map[int]bool
	// ExistingIndices holds every question index already materialized,
	// fixed and generated alike.
	ExistingIndices map[int]bool
}

// Decision is the action set derived from one observation. The caller owns
// all I/O; analysis and next-batch generation are independent of each other.
type Decision struct {
	Analysis    *BatchRef
	NextBatch   *IndexRange
	CanFinalize bool
	// CanContinue reports that the target gate is closed and only an
	// explicit continue action may open the next batch.
	CanContinue bool
}

// Decide computes what the controller should do for the observed state.
func Decide(obs Observation) Decision {
	targetReached := obs.ReportTarget > 0 && obs.AnsweredCount >= obs.ReportTarget
	d := Decision{
		CanFinalize: obs.AnsweredCount >= BatchSize,
		CanContinue: targetReached,
	}
	if obs.AnsweredCount <= 0 || obs.AnsweredCount%BatchSize != 0 {
		return d
	}
	batch := obs.AnsweredCount / BatchSize
	if !obs.AnalysisBatches[batch] {
		d.Analysis = &BatchRef{
			Batch: batch,
			Range: IndexRange{Start: (batch-1)*BatchSize + 1, End: batch * BatchSize},
		}
	}
	// Reaching the target silences auto-continuation; an explicit continue
	// re-arms exactly one batch, then the gate applies again.
	if targetReached && !obs.ContinuedBeyondTarget {
		return d
	}
	next := IndexRange{Start: obs.AnsweredCount + 1, End: obs.AnsweredCount + BatchSize}
	if len(MissingIndices(next, obs.ExistingIndices)) > 0 {
		d.NextBatch = &next
	}
	return d
}

// MissingIndices returns the indices in r that have no materialized question
// yet. Fixed questions and already-persisted rows both count as existing, so
// retried generation calls request nothing twice.
func MissingIndices(r IndexRange, existing map[int]bool) []int {
	var missing []int
	for i := r.Start; i <= r.End; i++ {
		if !existing[i] {
			missing = append(missing, i)
		}
	}
	return missing
}
