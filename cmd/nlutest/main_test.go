package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/flymebot/internal/recognizer"
)

func TestReferenceDate(t *testing.T) {
	d, err := referenceDate("2023-05-17")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 5, 17, 0, 0, 0, 0, time.UTC), d)

	_, err = referenceDate("17/05/2023")
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	res := recognizer.Result{
		Intent:   recognizer.IntentBookFlight,
		Entities: recognizer.Entities{Origin: "Paris", Destination: "Berlin"},
	}
	out, err := report("pattern", "book a flight from Paris to Berlin", res, 12*time.Millisecond)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "pattern", got["provider"])
	assert.Equal(t, true, got["book_flight"])
	assert.Equal(t, float64(12), got["elapsed_ms"])
	assert.Equal(t, "Berlin", got["entities"].(map[string]any)["destination"])
}
