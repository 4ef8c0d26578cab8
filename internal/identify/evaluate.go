package identify

import "fmt"

// Evaluation compares a recovered partition against ground truth.
type Evaluation struct {
	// PairwiseAccuracy is the Rand index: the fraction of fibre pairs on
	// which the clustering and the truth agree about co-membership.
	PairwiseAccuracy float64 `json:"pairwise_accuracy"`

	// CommunityRatio is recovered community count over true unit count.
	// 1.0 means the count was recovered exactly.
	CommunityRatio float64 `json:"community_ratio"`

	// SizeEMD is the Wasserstein distance between the recovered and true
	// community-size distributions.
	SizeEMD float64 `json:"size_emd"`
}

// Evaluate scores predicted labels against ground-truth labels. Both
// slices must cover the same fibres in the same order; fibres the
// identification left unlabeled (-1) are excluded from the pairwise
// score but still count against the community ratio denominator.
func Evaluate(predicted, truth []int) (*Evaluation, error) {
	if len(predicted) != len(truth) {
		return nil, fmt.Errorf("evaluate: %d predicted labels vs %d truth labels", len(predicted), len(truth))
	}
	if len(predicted) == 0 {
		return nil, fmt.Errorf("evaluate: no labels")
	}

	var agree, pairs float64
	for i := 0; i < len(predicted); i++ {
		if predicted[i] < 0 {
			continue
		}
		for j := i + 1; j < len(predicted); j++ {
			if predicted[j] < 0 {
				continue
			}
			pairs++
			samePred := predicted[i] == predicted[j]
			sameTrue := truth[i] == truth[j]
			if samePred == sameTrue {
				agree++
			}
		}
	}

	accuracy := 1.0
	if pairs > 0 {
		accuracy = agree / pairs
	}

	predSizes := labelSizes(predicted)
	trueSizes := labelSizes(truth)

	ratio := 0.0
	if len(trueSizes) > 0 {
		ratio = float64(len(predSizes)) / float64(len(trueSizes))
	}

	return &Evaluation{
		PairwiseAccuracy: accuracy,
		CommunityRatio:   ratio,
		SizeEMD:          Wasserstein(intsToFloats(predSizes), intsToFloats(trueSizes)),
	}, nil
}

// labelSizes returns the member count of each label, ignoring -1.
func labelSizes(labels []int) []int {
	counts := make(map[int]int)
	for _, l := range labels {
		if l >= 0 {
			counts[l]++
		}
	}
	sizes := make([]int, 0, len(counts))
	for _, c := range counts {
		sizes = append(sizes, c)
	}
	return sizes
}
