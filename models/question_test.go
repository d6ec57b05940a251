package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func validQuestion() *ResearchQuestion {
	return &ResearchQuestion{
		Owner:        "alice",
		Name:         "CRISPR delivery methods",
		Keywords:     datatypes.NewJSONSlice([]string{"crispr", "delivery"}),
		Sources:      datatypes.NewJSONSlice([]string{SourceWildcard}),
		MinRelevance: 0.5,
		Frequency:    FrequencyDaily,
		TimeOfDay:    "08:00",
		IsActive:     true,
	}
}

func TestValidateAcceptsValidQuestion(t *testing.T) {
	require.NoError(t, validQuestion().Validate())
}

func TestValidateRequiresName(t *testing.T) {
	q := validQuestion()
	q.Name = ""
	err := q.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidQuestion)
}

func TestValidateRequiresKeywordOrTopic(t *testing.T) {
	q := validQuestion()
	q.Keywords = nil
	q.Topics = nil
	assert.Error(t, q.Validate())

	// A topic alone is enough.
	q.Topics = datatypes.NewJSONSlice([]string{"gene editing"})
	assert.NoError(t, q.Validate())
}

func TestValidateRequiresSources(t *testing.T) {
	q := validQuestion()
	q.Sources = nil
	assert.ErrorIs(t, q.Validate(), ErrInvalidQuestion)
}

func TestValidateThresholdRange(t *testing.T) {
	q := validQuestion()
	q.MinRelevance = -0.1
	assert.Error(t, q.Validate())

	q.MinRelevance = 1.1
	assert.Error(t, q.Validate())

	q.MinRelevance = 0
	assert.NoError(t, q.Validate())

	q.MinRelevance = 1
	assert.NoError(t, q.Validate())
}

func TestValidateFrequency(t *testing.T) {
	q := validQuestion()
	for _, freq := range []string{FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyOnDemand} {
		q.Frequency = freq
		assert.NoError(t, q.Validate())
	}
	q.Frequency = "hourly"
	assert.Error(t, q.Validate())
}

func TestValidateTimeOfDay(t *testing.T) {
	q := validQuestion()
	q.TimeOfDay = "25:00"
	assert.Error(t, q.Validate())

	q.TimeOfDay = "not a time"
	assert.Error(t, q.Validate())

	q.TimeOfDay = ""
	assert.NoError(t, q.Validate())
}

func TestValidateDaysOfWeek(t *testing.T) {
	q := validQuestion()
	q.Frequency = FrequencyWeekly
	q.DaysOfWeek = datatypes.NewJSONSlice([]string{"monday", "Friday"})
	assert.NoError(t, q.Validate())

	q.DaysOfWeek = datatypes.NewJSONSlice([]string{"monday", "caturday"})
	assert.Error(t, q.Validate())
}

func TestWeekdays(t *testing.T) {
	q := validQuestion()
	q.DaysOfWeek = datatypes.NewJSONSlice([]string{"monday", "friday"})
	assert.Equal(t, []time.Weekday{time.Monday, time.Friday}, q.Weekdays())
}
