package model

import "sort"

// Candidate is one answer statement under consideration
type Candidate struct {
	Letter    string `json:"letter"`    // Identifier from a small fixed alphabet (A-D)
	Statement string `json:"statement"` // Reformulated statement text
	Live      bool   `json:"live"`      // False once disproven; candidates are never deleted
}

// CandidateSet owns the candidates for one question. Liveness is mutated
// only through its methods so elimination history stays auditable.
type CandidateSet struct {
	candidates []*Candidate
}

// NewCandidateSet creates a set from letter->statement pairs, ordered by letter.
func NewCandidateSet(statements map[string]string) *CandidateSet {
	letters := make([]string, 0, len(statements))
	for letter := range statements {
		letters = append(letters, letter)
	}
	sort.Strings(letters)

	set := &CandidateSet{}
	for _, letter := range letters {
		set.candidates = append(set.candidates, &Candidate{
			Letter:    letter,
			Statement: statements[letter],
			Live:      true,
		})
	}
	return set
}

// All returns every candidate, dead or live, in letter order.
func (s *CandidateSet) All() []*Candidate {
	return s.candidates
}

// Live returns the live candidates in letter order.
func (s *CandidateSet) Live() []*Candidate {
	var live []*Candidate
	for _, c := range s.candidates {
		if c.Live {
			live = append(live, c)
		}
	}
	return live
}

// LiveCount returns the number of live candidates.
func (s *CandidateSet) LiveCount() int {
	return len(s.Live())
}

// Get returns the candidate with the given letter, or nil.
func (s *CandidateSet) Get(letter string) *Candidate {
	for _, c := range s.candidates {
		if c.Letter == letter {
			return c
		}
	}
	return nil
}

// Eliminate marks the candidate with the given letter dead.
func (s *CandidateSet) Eliminate(letter string) {
	if c := s.Get(letter); c != nil {
		c.Live = false
	}
}

// Restore marks every candidate live again. Used by the RESET transition
// when a round disproves the entire set.
func (s *CandidateSet) Restore() {
	for _, c := range s.candidates {
		c.Live = true
	}
}

// Sole returns the single live candidate, or nil if zero or several remain.
func (s *CandidateSet) Sole() *Candidate {
	live := s.Live()
	if len(live) == 1 {
		return live[0]
	}
	return nil
}
