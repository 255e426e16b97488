package constants_test

import (
	"github.com/dataconservancy/ingest/constants"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestTempIdPattern(t *testing.T) {
	pattern := constants.TempIdPattern
	assert.True(t, pattern.MatchString("example:/file/1"))
	assert.True(t, pattern.MatchString("urn:local:du-1"))
	assert.True(t, pattern.MatchString("http://example.org/du/7"))
	assert.False(t, pattern.MatchString("no scheme"))
	assert.False(t, pattern.MatchString(""))
	assert.False(t, pattern.MatchString("1abc:/starts/with/digit"))
}

func TestStageOrder(t *testing.T) {
	assert.Equal(t, constants.StageIdentifierLabel, constants.StageOrder[0])
	assert.Equal(t, constants.StageFinish, constants.StageOrder[len(constants.StageOrder)-1])

	lineage := -1
	branch := -1
	for i, stage := range constants.StageOrder {
		if stage == constants.StageLineageLabel {
			lineage = i
		}
		if stage == constants.StageBranchCheck {
			branch = i
		}
	}
	assert.True(t, lineage >= 0 && branch > lineage, "Lineage must run before branch check")
}

func TestEventTypesAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, eventType := range constants.EventTypes {
		assert.False(t, seen[eventType], "Duplicate event type %s", eventType)
		seen[eventType] = true
	}
}
