package models

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/schema"
)

func TestFeedbackEntry_RecordIDIsNotUnique(t *testing.T) {
	sch, err := schema.Parse(&FeedbackEntry{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	assert.Equal(t, "feedback", sch.Table)

	field := sch.LookUpField("RecordID")
	require.NotNil(t, field)
	assert.Contains(t, field.TagSettings, "INDEX")
	assert.NotContains(t, field.TagSettings, "UNIQUEINDEX")
	assert.NotContains(t, field.TagSettings, "UNIQUE")
	assert.True(t, field.NotNull)
}

func TestFeedbackEntry_Validate(t *testing.T) {
	entry := FeedbackEntry{RecordID: "abc", Question: "2+2", Rating: 4}
	assert.NoError(t, entry.Validate())

	entry.Rating = 6
	assert.Error(t, entry.Validate())

	entry.Rating, entry.RecordID = 3, ""
	assert.Error(t, entry.Validate())
}
