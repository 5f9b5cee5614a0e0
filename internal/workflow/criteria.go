package workflow

import (
	"fmt"

	"ideaflow/internal/models"
)

// CriteriaErrorMessage is the single unmet entry reported when inputs could not be read.
const CriteriaErrorMessage = "Error checking criteria"

// Signals is a snapshot of the community activity consulted by the criteria.
type Signals struct {
	Interactions     models.InteractionCounts
	Evaluations      int
	Scores           []models.EvaluationScores
	Comments         int
	InvestorInterest int
	Documents        int
}

// CompositeAverage is the mean per-evaluation sum of the four sub-scores.
// ok is false when there are no scores.
func CompositeAverage(scores []models.EvaluationScores) (avg float64, ok bool) {
	if len(scores) == 0 {
		return 0, false
	}
	sum := 0
	for _, s := range scores {
		sum += s.Total()
	}
	return float64(sum) / float64(len(scores)), true
}

type verdict struct {
	met   []string
	unmet []string
}

func (v *verdict) check(ok bool, metMsg, unmetMsg string) {
	if ok {
		v.met = append(v.met, metMsg)
	} else {
		v.unmet = append(v.unmet, unmetMsg)
	}
}

// checkEdge applies the criteria of a canonical edge to a snapshot.
func checkEdge(e Edge, s Signals) verdict {
	switch e {
	case Edge{From: models.StatusProposed, To: models.StatusUnderReview}:
		return checkReview(s)
	case Edge{From: models.StatusUnderReview, To: models.StatusValidated}:
		return checkValidation(s)
	case Edge{From: models.StatusValidated, To: models.StatusInvestmentReady}:
		return checkInvestment(s)
	default:
		return verdict{}
	}
}

func checkReview(s Signals) verdict {
	var v verdict

	interactions := s.Interactions.Total()
	v.check(interactions >= MinInteractionsForReview,
		fmt.Sprintf("%d interactions (votes + comments)", interactions),
		fmt.Sprintf("Need %d more interactions (votes + comments)", MinInteractionsForReview-interactions))

	v.check(s.Evaluations >= MinEvaluationsForReview,
		fmt.Sprintf("%d evaluations submitted", s.Evaluations),
		fmt.Sprintf("Need %d more evaluations", MinEvaluationsForReview-s.Evaluations))

	return v
}

func checkValidation(s Signals) verdict {
	var v verdict

	v.check(s.Evaluations >= MinEvaluationsForValidation,
		fmt.Sprintf("%d evaluations submitted", s.Evaluations),
		fmt.Sprintf("Need %d more evaluations", MinEvaluationsForValidation-s.Evaluations))

	// No scores yet: the average criterion is not evaluated at all.
	if avg, ok := CompositeAverage(s.Scores); ok {
		v.check(avg >= MinAverageScoreForValidation,
			fmt.Sprintf("Average score %.1f/%d meets the minimum of %d", avg, MaxCompositeScore, MinAverageScoreForValidation),
			fmt.Sprintf("Average score %.1f/%d is below the minimum of %d", avg, MaxCompositeScore, MinAverageScoreForValidation))
	}

	v.check(s.Comments >= MinCommentsForValidation,
		fmt.Sprintf("%d comments", s.Comments),
		fmt.Sprintf("Need %d more comments", MinCommentsForValidation-s.Comments))

	return v
}

func checkInvestment(s Signals) verdict {
	var v verdict

	v.check(s.InvestorInterest >= MinInvestorInterestForInvestment,
		fmt.Sprintf("%d investors interested", s.InvestorInterest),
		fmt.Sprintf("Need %d more investor interests", MinInvestorInterestForInvestment-s.InvestorInterest))

	v.check(s.Documents >= MinDocumentsForInvestment,
		fmt.Sprintf("%d supporting documents attached", s.Documents),
		"Need at least 1 supporting document")

	return v
}
