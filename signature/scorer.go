package signature

// Score evaluates every rule of sig against the bundle, sums the weights of
// the rules that fired, and caps the sum at 1.0. A detection is produced
// only when the capped score reaches the signature's medium threshold;
// sub-medium evidence is dropped, not reported as Low. Receipts keep the
// rule order of the signature.
func Score(sig Signature, s *Signals) (Detection, bool) {
	var sum float64
	var receipts []Receipt

	for _, rule := range sig.Rules {
		r, ok := Match(rule, s)
		if !ok {
			continue
		}
		sum += rule.Weight
		receipts = append(receipts, r)
	}

	score := sum
	if score > 1.0 {
		score = 1.0
	}
	if score < sig.Thresholds.Medium {
		return Detection{}, false
	}

	conf := Medium
	if score >= sig.Thresholds.High {
		conf = High
	}

	return Detection{
		ID:         sig.ID,
		Name:       sig.Name,
		Category:   sig.Category,
		Confidence: conf,
		Score:      score,
		Receipts:   receipts,
	}, true
}

// ScoreAll runs every signature in sigs through Score and returns the
// detections ordered by descending score. Ties keep catalogue order, which
// makes repeated scans of identical input byte-stable.
func ScoreAll(sigs []Signature, s *Signals) []Detection {
	var out []Detection
	for _, sig := range sigs {
		if d, ok := Score(sig, s); ok {
			out = append(out, d)
		}
	}
	// Insertion sort by score keeps the catalogue order for equal scores.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
