package workflow

import (
	"testing"

	"ideaflow/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCompositeAverage(t *testing.T) {
	avg, ok := CompositeAverage([]models.EvaluationScores{
		{MarketSize: 5, Feasibility: 5, StrategicFit: 5, Novelty: 5},
		{MarketSize: 1, Feasibility: 1, StrategicFit: 1, Novelty: 1},
	})
	assert.True(t, ok)
	assert.InDelta(t, 12.0, avg, 1e-9)

	avg, ok = CompositeAverage([]models.EvaluationScores{
		{MarketSize: 4, Feasibility: 3, StrategicFit: 5, Novelty: 2},
		{MarketSize: 2, Feasibility: 3, StrategicFit: 3, Novelty: 3},
		{MarketSize: 5, Feasibility: 4, StrategicFit: 4, Novelty: 4},
	})
	assert.True(t, ok)
	assert.InDelta(t, 14.0, avg, 1e-9)

	avg, ok = CompositeAverage(nil)
	assert.False(t, ok)
	assert.Zero(t, avg)
}

func TestCheckReview_GapMessages(t *testing.T) {
	v := checkReview(Signals{})
	assert.Empty(t, v.met)
	assert.Equal(t, []string{
		"Need 3 more interactions (votes + comments)",
		"Need 1 more evaluations",
	}, v.unmet)
}

func TestCheckValidation_FractionalAverage(t *testing.T) {
	v := checkValidation(Signals{
		Evaluations: 5,
		Comments:    3,
		Scores: []models.EvaluationScores{
			{MarketSize: 3, Feasibility: 3, StrategicFit: 3, Novelty: 3},
			{MarketSize: 3, Feasibility: 3, StrategicFit: 3, Novelty: 2},
		},
	})
	assert.Equal(t, []string{"Average score 11.5/20 is below the minimum of 12"}, v.unmet)
	assert.Len(t, v.met, 2)
}

func TestCheckEdge_NonCanonicalIsEmpty(t *testing.T) {
	v := checkEdge(Edge{From: models.StatusProposed, To: models.StatusInvestmentReady}, Signals{})
	assert.Empty(t, v.met)
	assert.Empty(t, v.unmet)
}
