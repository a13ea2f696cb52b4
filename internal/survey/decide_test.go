package survey

import "testing"

func indexSet(indices ...int) map[int]bool {
	set := make(map[int]bool, len(indices))
	for _, idx := range indices {
		set[idx] = true
	}
	return set
}

func indexRangeSet(start, end int) map[int]bool {
	set := make(map[int]bool, end-start+1)
	for i := start; i <= end; i++ {
		set[i] = true
	}
	return set
}

func TestDecideAwaitingAnswers(t *testing.T) {
	dec := Decide(Observation{
		AnsweredCount:   3,
		ReportTarget:    10,
		ExistingIndices: indexRangeSet(1, 5),
	})
	if dec.Analysis != nil || dec.NextBatch != nil {
		t.Fatalf("expected no actions mid-batch, got %+v", dec)
	}
	if dec.CanFinalize {
		t.Fatalf("finalize must require at least %d answers", BatchSize)
	}
}

func TestDecideBatchBoundary(t *testing.T) {
	dec := Decide(Observation{
		AnsweredCount:   5,
		ReportTarget:    10,
		AnalysisBatches: map[int]bool{},
		ExistingIndices: indexRangeSet(1, 5),
	})
	if dec.Analysis == nil {
		t.Fatalf("expected analysis request at boundary")
	}
	if dec.Analysis.Batch != 1 || dec.Analysis.Range.Start != 1 || dec.Analysis.Range.End != 5 {
		t.Fatalf("unexpected analysis ref: %+v", dec.Analysis)
	}
	if dec.NextBatch == nil || dec.NextBatch.Start != 6 || dec.NextBatch.End != 10 {
		t.Fatalf("unexpected next batch: %+v", dec.NextBatch)
	}
	if !dec.CanFinalize {
		t.Fatalf("expected finalize to be allowed at 5 answers")
	}
}

func TestDecideSkipsExistingAnalysisAndBatch(t *testing.T) {
	dec := Decide(Observation{
		AnsweredCount:   5,
		ReportTarget:    15,
		AnalysisBatches: map[int]bool{1: true},
		ExistingIndices: indexRangeSet(1, 10),
	})
	if dec.Analysis != nil {
		t.Fatalf("analysis already exists, got %+v", dec.Analysis)
	}
	if dec.NextBatch != nil {
		t.Fatalf("next batch already materialized, got %+v", dec.NextBatch)
	}
}

func TestDecideTargetGate(t *testing.T) {
	dec := Decide(Observation{
		AnsweredCount:   10,
		ReportTarget:    10,
		AnalysisBatches: map[int]bool{1: true},
		ExistingIndices: indexRangeSet(1, 10),
	})
	if dec.Analysis == nil || dec.Analysis.Batch != 2 {
		t.Fatalf("expected analysis for batch 2, got %+v", dec.Analysis)
	}
	if dec.NextBatch != nil {
		t.Fatalf("target reached must silence auto-continuation, got %+v", dec.NextBatch)
	}
	if !dec.CanContinue {
		t.Fatalf("expected explicit continue to be offered at target")
	}
	if !dec.CanFinalize {
		t.Fatalf("expected finalize at target")
	}
}

func TestDecideContinueBeyondTargetReArmsOneBatch(t *testing.T) {
	dec := Decide(Observation{
		AnsweredCount:         10,
		ReportTarget:          10,
		ContinuedBeyondTarget: true,
		AnalysisBatches:       map[int]bool{1: true, 2: true},
		ExistingIndices:       indexRangeSet(1, 10),
	})
	if dec.NextBatch == nil || dec.NextBatch.Start != 11 || dec.NextBatch.End != 15 {
		t.Fatalf("expected batch 11-15 after continue, got %+v", dec.NextBatch)
	}

	// The gate re-applies at the next boundary without a fresh continue.
	dec = Decide(Observation{
		AnsweredCount:   15,
		ReportTarget:    10,
		AnalysisBatches: map[int]bool{1: true, 2: true, 3: true},
		ExistingIndices: indexRangeSet(1, 15),
	})
	if dec.NextBatch != nil {
		t.Fatalf("gate must re-apply past target, got %+v", dec.NextBatch)
	}
}

func TestMissingIndicesIdempotence(t *testing.T) {
	r := IndexRange{Start: 1, End: 5}
	missing := MissingIndices(r, indexSet(1, 2, 3))
	if len(missing) != 2 || missing[0] != 4 || missing[1] != 5 {
		t.Fatalf("expected [4 5], got %v", missing)
	}
	if missing := MissingIndices(r, indexRangeSet(1, 5)); len(missing) != 0 {
		t.Fatalf("fully materialized range should need nothing, got %v", missing)
	}
}
