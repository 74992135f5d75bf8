package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeTutorialStatsEmpty(t *testing.T) {
	stats := ComputeTutorialStats("t1", []int{1, 2}, nil)

	assert.Equal(t, "t1", stats.TutorialID)
	assert.Equal(t, 0, stats.TotalUsers)
	assert.Equal(t, 0, stats.CompletedUsers)
	assert.Equal(t, 0.0, stats.CompletionRate)
	assert.Equal(t, 0.0, stats.AverageScore)
	assert.Equal(t, 2, stats.TotalSteps)
	assert.Equal(t, map[string]float64{"1": 0, "2": 0}, stats.AverageTimePerStep)
}

func TestComputeTutorialStatsCompletionRate(t *testing.T) {
	rows := []ProgressFacts{
		{Completed: true},
		{Completed: true},
		{Completed: false},
	}
	stats := ComputeTutorialStats("t1", nil, rows)

	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 2, stats.CompletedUsers)
	assert.Equal(t, 66.67, stats.CompletionRate)
}

func TestComputeTutorialStatsAverageScoreSkipsZeros(t *testing.T) {
	rows := []ProgressFacts{
		{Score: 80},
		{Score: 0},
		{Score: 90},
	}
	stats := ComputeTutorialStats("t1", nil, rows)

	// zero scores are "not graded yet", not failing grades
	assert.Equal(t, 85.0, stats.AverageScore)
}

func TestComputeTutorialStatsPerStepAverages(t *testing.T) {
	rows := []ProgressFacts{
		{TimePerStep: map[string]float64{"1": 10, "2": 30}},
		{TimePerStep: map[string]float64{"1": 20}},
	}
	stats := ComputeTutorialStats("t1", []int{1, 2, 3}, rows)

	assert.Equal(t, 15.0, stats.AverageTimePerStep["1"])
	assert.Equal(t, 30.0, stats.AverageTimePerStep["2"])
	assert.Equal(t, 0.0, stats.AverageTimePerStep["3"])
	assert.Equal(t, 3, stats.TotalSteps)
}

func TestComputeTutorialStatsIgnoresUnknownStepKeys(t *testing.T) {
	rows := []ProgressFacts{
		{TimePerStep: map[string]float64{"99": 500}},
	}
	stats := ComputeTutorialStats("t1", []int{1}, rows)

	assert.Equal(t, map[string]float64{"1": 0}, stats.AverageTimePerStep)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 66.67, round2(200.0/3.0))
	assert.Equal(t, 0.0, round2(0))
	assert.Equal(t, 100.0, round2(100))
}
