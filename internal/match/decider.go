package match

// Status is the terminal state of one match decision.
type Status int

const (
	// StatusNoMatch means no candidate cleared the threshold.
	StatusNoMatch Status = iota
	// StatusInactive means the best candidate cleared the threshold
	// but its identity is deactivated: recognized, access denied.
	StatusInactive
	// StatusMatched means an active identity cleared the threshold.
	StatusMatched
)

// Decision is the outcome of applying the threshold policy to the
// candidate list. Confidence carries the best candidate's similarity
// even when the decision is a rejection, so the attempt record can
// report how close the nearest identity was.
type Decision struct {
	Status     Status
	PersonID   int64
	Name       string
	Confidence float64
}

// Decide applies the accept policy to candidates (ordered best-first,
// as returned by an Index): accept only if the single best candidate's
// similarity strictly exceeds threshold AND its identity is active.
// When several candidates tie at the top similarity the one with the
// lowest person ID wins, keeping the decision deterministic.
func Decide(candidates []Candidate, threshold float64) Decision {
	if len(candidates) == 0 {
		return Decision{Status: StatusNoMatch}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Similarity != best.Similarity {
			break
		}
		if c.PersonID < best.PersonID {
			best = c
		}
	}

	if best.Similarity <= threshold {
		return Decision{Status: StatusNoMatch, Confidence: best.Similarity}
	}

	if !best.Active {
		return Decision{
			Status:     StatusInactive,
			PersonID:   best.PersonID,
			Name:       best.Name,
			Confidence: best.Similarity,
		}
	}

	return Decision{
		Status:     StatusMatched,
		PersonID:   best.PersonID,
		Name:       best.Name,
		Confidence: best.Similarity,
	}
}
