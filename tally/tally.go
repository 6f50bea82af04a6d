// Package tally computes election results from the stored ballots:
// majority judgment for person elections and plain counting for
// choice elections.
package tally

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/lfavole/voting/types"
)

// CandidateScore is the majority-judgment profile of one candidate.
type CandidateScore struct {
	CandidateID string `json:"id"`
	Name        string `json:"name"`
	// Median is the majority grade, 0 when the candidate received no
	// grade at all.
	Median      types.Grade `json:"median"`
	MedianLabel string      `json:"medianLabel,omitempty"`
	// PPlus and PMinus are the percentages of grades strictly better
	// and strictly worse than the median, rounded to 2 decimals.
	PPlus  float64 `json:"pPlus"`
	PMinus float64 `json:"pMinus"`
	// Percentages maps each grade (as its integer value) to the
	// rounded percentage of voters who assigned it.
	Percentages map[types.Grade]float64 `json:"percentages"`
	Counts      map[types.Grade]int     `json:"counts"`
	TotalGrades int                     `json:"totalGrades"`
}

// PersonResults is the ranked outcome of a person election,
// best candidate first.
type PersonResults struct {
	Kind         types.ElectionKind `json:"kind"`
	TotalBallots int                `json:"totalBallots"`
	Candidates   []*CandidateScore  `json:"candidates"`
}

// ChoiceResults counts the answers of a choice election.
type ChoiceResults struct {
	Kind         types.ElectionKind `json:"kind"`
	TotalBallots int                `json:"totalBallots"`
	Yes          int                `json:"yes"`
	No           int                `json:"no"`
	DontKnow     int                `json:"dontKnow"`
}

// Compute tallies the ballots of an election according to its kind.
// The returned value is either *PersonResults or *ChoiceResults.
func Compute(election *types.Election, ballots []*types.Ballot) (any, error) {
	switch election.Kind {
	case types.ElectionKindPerson:
		return MajorityJudgment(election, ballots)
	case types.ElectionKindChoice:
		return CountChoices(ballots)
	default:
		return nil, fmt.Errorf("unknown election kind %q", election.Kind)
	}
}

// CountChoices counts yes, no and dont-know answers. A ballot with a
// null choice counts as dont-know, matching an abstaining voter.
func CountChoices(ballots []*types.Ballot) (*ChoiceResults, error) {
	results := &ChoiceResults{
		Kind:         types.ElectionKindChoice,
		TotalBallots: len(ballots),
	}
	for _, ballot := range ballots {
		var result types.ChoiceResult
		if err := json.Unmarshal(ballot.Result, &result); err != nil {
			return nil, fmt.Errorf("decode ballot %s: %w", ballot.Token, err)
		}
		switch {
		case result.Choice == nil:
			results.DontKnow++
		case *result.Choice:
			results.Yes++
		default:
			results.No++
		}
	}
	return results, nil
}

// MajorityJudgment ranks the candidates of a person election by their
// majority grade. For each candidate the median is the worst grade
// still held by an absolute majority: cumulating counts from the worst
// grade down, the first grade whose cumulative count reaches
// floor(N/2)+1. Candidates are ordered by median, then by the dominant
// side of the grade distribution (a stronger positive side wins, a
// weaker negative side loses less), with the candidate name as final
// tie break. Candidates that received no grade rank last.
func MajorityJudgment(election *types.Election, ballots []*types.Ballot) (*PersonResults, error) {
	grades := make(map[string][]types.Grade, len(election.Candidates))
	for _, ballot := range ballots {
		var result types.PersonsResult
		if err := json.Unmarshal(ballot.Result, &result); err != nil {
			return nil, fmt.Errorf("decode ballot %s: %w", ballot.Token, err)
		}
		for candidateID, raw := range result.Persons {
			grade := types.Grade(raw)
			if !grade.Valid() {
				return nil, fmt.Errorf("ballot %s: invalid grade %d for candidate %q",
					ballot.Token, raw, candidateID)
			}
			grades[candidateID] = append(grades[candidateID], grade)
		}
	}

	results := &PersonResults{
		Kind:         types.ElectionKindPerson,
		TotalBallots: len(ballots),
	}
	for _, candidate := range election.Candidates {
		results.Candidates = append(results.Candidates,
			scoreCandidate(candidate, grades[candidate.ID]))
	}
	slices.SortStableFunc(results.Candidates, compareScores)
	return results, nil
}

func scoreCandidate(candidate types.Candidate, grades []types.Grade) *CandidateScore {
	score := &CandidateScore{
		CandidateID: candidate.ID,
		Name:        candidate.Name,
		Counts:      make(map[types.Grade]int),
		Percentages: make(map[types.Grade]float64),
		TotalGrades: len(grades),
	}
	if len(grades) == 0 {
		return score
	}

	for _, grade := range grades {
		score.Counts[grade]++
	}

	// Reverse cumulation from the worst grade: the median is the
	// first grade whose cumulative count holds an absolute majority.
	majority := len(grades)/2 + 1
	cumulative := 0
	for grade := types.GradeWorst; grade >= types.GradeBest; grade-- {
		cumulative += score.Counts[grade]
		if cumulative >= majority {
			score.Median = grade
			break
		}
	}
	score.MedianLabel = score.Median.String()

	better, worse := 0, 0
	for grade, count := range score.Counts {
		switch {
		case grade < score.Median:
			better += count
		case grade > score.Median:
			worse += count
		}
		score.Percentages[grade] = roundPercent(count, len(grades))
	}
	score.PPlus = roundPercent(better, len(grades))
	score.PMinus = roundPercent(worse, len(grades))
	return score
}

// compareScores orders two candidate profiles best-first.
func compareScores(a, b *CandidateScore) int {
	// Ungraded candidates sink to the bottom.
	if (a.TotalGrades == 0) != (b.TotalGrades == 0) {
		if a.TotalGrades == 0 {
			return 1
		}
		return -1
	}
	if a.TotalGrades > 0 {
		if a.Median != b.Median {
			return int(a.Median) - int(b.Median)
		}
		aPlus := a.PPlus > a.PMinus
		bPlus := b.PPlus > b.PMinus
		if aPlus != bPlus {
			if aPlus {
				return -1
			}
			return 1
		}
		if aPlus {
			// Both positive-dominant: larger positive side first.
			if a.PPlus != b.PPlus {
				if a.PPlus > b.PPlus {
					return -1
				}
				return 1
			}
		} else {
			// Both negative-dominant (or balanced): smaller negative
			// side first.
			if a.PMinus != b.PMinus {
				if a.PMinus < b.PMinus {
					return -1
				}
				return 1
			}
		}
	}
	return strings.Compare(a.Name, b.Name)
}

func roundPercent(count, total int) float64 {
	return math.Round(float64(count)/float64(total)*10000) / 100
}
