package match

import "testing"

func cand(personID int64, sim float64, active bool) Candidate {
	return Candidate{PersonID: personID, Similarity: sim, Active: active}
}

func TestDecide_EmptyCandidates(t *testing.T) {
	d := Decide(nil, 0.6)
	if d.Status != StatusNoMatch {
		t.Errorf("expected StatusNoMatch, got %v", d.Status)
	}
}

func TestDecide_ThresholdIsStrict(t *testing.T) {
	// Exactly at the threshold is a rejection.
	d := Decide([]Candidate{cand(1, 0.6, true)}, 0.6)
	if d.Status != StatusNoMatch {
		t.Errorf("expected StatusNoMatch at exact threshold, got %v", d.Status)
	}
	if d.Confidence != 0.6 {
		t.Errorf("expected confidence 0.6 reported on rejection, got %v", d.Confidence)
	}

	d = Decide([]Candidate{cand(1, 0.601, true)}, 0.6)
	if d.Status != StatusMatched {
		t.Errorf("expected StatusMatched just above threshold, got %v", d.Status)
	}
	if d.PersonID != 1 {
		t.Errorf("expected person 1, got %d", d.PersonID)
	}
}

func TestDecide_InactiveIsDistinctFromNoMatch(t *testing.T) {
	d := Decide([]Candidate{cand(7, 0.9, false)}, 0.6)
	if d.Status != StatusInactive {
		t.Errorf("expected StatusInactive, got %v", d.Status)
	}
	if d.PersonID != 7 {
		t.Errorf("expected person 7 surfaced on inactive match, got %d", d.PersonID)
	}
	if d.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %v", d.Confidence)
	}
}

func TestDecide_Monotonicity(t *testing.T) {
	// Decreasing the threshold never converts an accept into a reject.
	candidates := []Candidate{cand(3, 0.75, true)}
	thresholds := []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4}

	accepted := false
	for _, th := range thresholds {
		d := Decide(candidates, th)
		isAccept := d.Status == StatusMatched
		if accepted && !isAccept {
			t.Fatalf("accept at higher threshold became reject at %v", th)
		}
		if isAccept {
			accepted = true
		}
	}
	if !accepted {
		t.Error("expected at least one threshold to accept")
	}
}

func TestDecide_TieBreakLowestPersonID(t *testing.T) {
	candidates := []Candidate{
		cand(9, 0.8, true),
		cand(4, 0.8, true),
		cand(2, 0.7, true),
	}
	d := Decide(candidates, 0.5)
	if d.Status != StatusMatched {
		t.Fatalf("expected match, got %v", d.Status)
	}
	if d.PersonID != 4 {
		t.Errorf("expected tie broken to person 4, got %d", d.PersonID)
	}
}

func TestDecide_OnlyBestCandidateCounts(t *testing.T) {
	// A lower-ranked candidate above threshold does not rescue a
	// below-threshold best. Candidates arrive best-first.
	candidates := []Candidate{
		cand(1, 0.55, false),
		cand(2, 0.54, true),
	}
	d := Decide(candidates, 0.5)
	if d.Status != StatusInactive {
		t.Errorf("expected inactive best candidate to decide, got %v", d.Status)
	}
}
