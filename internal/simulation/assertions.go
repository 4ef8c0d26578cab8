package simulation

import "testing"

// AssertPartitionComplete checks that every fibre is either assigned to
// a community or explicitly reported as unlabeled.
func AssertPartitionComplete(t *testing.T, result Result) {
	t.Helper()

	unlabeled := make(map[int]bool, len(result.Identified.Unlabeled))
	for _, f := range result.Identified.Unlabeled {
		unlabeled[f] = true
	}
	for i, l := range result.Identified.Labels {
		switch {
		case l >= 0 && unlabeled[i]:
			t.Errorf("fibre %d has label %d but is also reported unlabeled", i, l)
		case l < 0 && !unlabeled[i]:
			t.Errorf("fibre %d has no label and is not reported unlabeled", i)
		}
	}
	if got, want := len(result.Identified.Labels), result.Activity.Fibres(); got != want {
		t.Errorf("expected %d labels, got %d", want, got)
	}
}

// AssertDeterministic checks that two runs of the same scenario
// produced identical partitions.
func AssertDeterministic(t *testing.T, first, second Result) {
	t.Helper()

	a, b := first.Identified.Labels, second.Identified.Labels
	if len(a) != len(b) {
		t.Fatalf("expected %d labels on repeat run, got %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("fibre %d labeled %d on first run, %d on second", i, a[i], b[i])
		}
	}
	if first.Identified.OptimalThreshold != second.Identified.OptimalThreshold {
		t.Errorf("optimal threshold drifted between runs: %v vs %v",
			first.Identified.OptimalThreshold, second.Identified.OptimalThreshold)
	}
}

// AssertAccuracyAbove checks that pairwise agreement with the ground
// truth exceeds min.
func AssertAccuracyAbove(t *testing.T, result Result, min float64) {
	t.Helper()

	if result.Evaluation.PairwiseAccuracy <= min {
		t.Errorf("expected pairwise accuracy above %v, got %v (%d communities for %d true units)",
			min, result.Evaluation.PairwiseAccuracy,
			result.Identified.NumCommunities, len(distinctLabels(result.Truth)))
	}
}

// AssertCommunityRatioWithin checks that the recovered community count
// is within tolerance of the true unit count, as a ratio.
func AssertCommunityRatioWithin(t *testing.T, result Result, tolerance float64) {
	t.Helper()

	ratio := result.Evaluation.CommunityRatio
	if ratio < 1-tolerance || ratio > 1+tolerance {
		t.Errorf("expected community ratio within %v of 1, got %v", tolerance, ratio)
	}
}
