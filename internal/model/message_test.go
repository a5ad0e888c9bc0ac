package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testMessages() []Message {
	return []Message{
		{ID: "1", UserID: "u1", UserName: "Layla Kawaguchi", Message: "Booking a trip to London next Friday"},
		{ID: "2", UserID: "u2", UserName: "Vikram Desai", Message: "I have 2 cars"},
		{ID: "3", UserID: "u1", UserName: "Layla Kawaguchi", Message: "I PREFER aisle seats"},
		{ID: "4", UserID: "u3", UserName: "Amira", Message: "My favorite restaurants are Nobu and Zuma"},
	}
}

func TestFilterByUserName(t *testing.T) {
	t.Parallel()

	t.Run("case-insensitive substring", func(t *testing.T) {
		t.Parallel()
		got := FilterByUserName(testMessages(), "  layla ")
		assert.Len(t, got, 2)
		assert.Equal(t, "1", got[0].ID)
		assert.Equal(t, "3", got[1].ID)
	})

	t.Run("partial surname", func(t *testing.T) {
		t.Parallel()
		got := FilterByUserName(testMessages(), "DESAI")
		assert.Len(t, got, 1)
		assert.Equal(t, "u2", got[0].UserID)
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, FilterByUserName(testMessages(), "nobody"))
	})
}

func TestFilterByText(t *testing.T) {
	t.Parallel()

	got := FilterByText(testMessages(), "prefer")
	assert.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)

	assert.Empty(t, FilterByText(testMessages(), "helicopter"))
	assert.Len(t, FilterByText(nil, "x"), 0)
}

func TestFilterByUserID(t *testing.T) {
	t.Parallel()

	assert.Len(t, FilterByUserID(testMessages(), "u1"), 2)
	// Exact match only.
	assert.Empty(t, FilterByUserID(testMessages(), "U1"))
	assert.Empty(t, FilterByUserID(testMessages(), "u"))
}

func TestContainsFold(t *testing.T) {
	t.Parallel()

	assert.True(t, ContainsFold("Trip to LONDON", "london"))
	assert.False(t, ContainsFold("Trip to Paris", "london"))
}

func TestFetchRunDuration(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := FetchRun{StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)}
	assert.Equal(t, 1500*time.Millisecond, r.Duration())

	r.FinishedAt = start.Add(-time.Second)
	assert.Equal(t, time.Duration(0), r.Duration())
}
