// Package ranking places submissions on a sheet's leaderboard by correct-pick count.
//
// Ranks use competition semantics: equal counts share a rank and the next lower count
// skips ahead by the size of the tied group (1, 1, 3, 4). Selections on propositions
// without an answer yet are ignored. The tie-breaker guess is carried along but not used
// to order submissions.
package ranking

import (
	"sort"

	"propsheet-service/internal/domain"
)

// Standings returns every ranked submission ordered by rank, then submission id.
// A submission is ranked once it has at least one selection.
func Standings(snapshot domain.SheetSnapshot) []domain.Standing {
	answers := answerKey(snapshot.Propositions)

	standings := make([]domain.Standing, 0, len(snapshot.Submissions))
	for _, sub := range snapshot.Submissions {
		if len(sub.Selections) == 0 {
			continue
		}
		standings = append(standings, domain.Standing{
			SubmissionID: sub.ID,
			UserID:       sub.UserID,
			Placement:    domain.Placement{CorrectCount: correctCount(sub, answers)},
			TieBreaker:   sub.TieBreaker,
		})
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].CorrectCount != standings[j].CorrectCount {
			return standings[i].CorrectCount > standings[j].CorrectCount
		}
		return standings[i].SubmissionID < standings[j].SubmissionID
	})

	groupSize := make(map[int]int)
	for _, s := range standings {
		groupSize[s.CorrectCount]++
	}
	for i := range standings {
		if i > 0 && standings[i].CorrectCount == standings[i-1].CorrectCount {
			standings[i].Rank = standings[i-1].Rank
		} else {
			standings[i].Rank = i + 1
		}
		standings[i].TieCount = groupSize[standings[i].CorrectCount] - 1
	}
	return standings
}

// Placement returns the placement of one submission. Submissions outside the ranked set
// land after everyone else: {0, 0, N+1}.
// N is the number of ranked submissions (those with a selection), not every submission in the sheet.
func Placement(snapshot domain.SheetSnapshot, submissionID string) domain.Placement {
	standings := Standings(snapshot)
	for _, s := range standings {
		if s.SubmissionID == submissionID {
			return s.Placement
		}
	}
	return domain.Placement{CorrectCount: 0, TieCount: 0, Rank: len(standings) + 1}
}

// answerKey maps graded propositions to their correct option.
func answerKey(props []domain.Proposition) map[string]string {
	answers := make(map[string]string, len(props))
	for _, p := range props {
		if p.AnswerID != nil {
			answers[p.ID] = *p.AnswerID
		}
	}
	return answers
}

func correctCount(sub domain.Submission, answers map[string]string) int {
	count := 0
	for _, sel := range sub.Selections {
		if answer, graded := answers[sel.PropositionID]; graded && answer == sel.OptionID {
			count++
		}
	}
	return count
}
