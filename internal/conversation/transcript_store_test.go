package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptStore_AppendAndList(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewTranscriptStore(client)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "conv-1",
		TranscriptMessage{Role: RoleUser, Text: "book a flight"},
		TranscriptMessage{Role: RoleBot, Text: "Which city do you want to escape from ?"},
	))

	msgs, err := store.List(ctx, "conv-1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "Which city do you want to escape from ?", msgs[1].Text)
	assert.NotEmpty(t, msgs[0].ID)
	assert.False(t, msgs[0].Timestamp.IsZero())
	assert.Equal(t, transcriptTTL, mr.TTL(transcriptKey("conv-1")))

	last, err := store.List(ctx, "conv-1", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, RoleBot, last[0].Role)

	require.NoError(t, store.Delete(ctx, "conv-1"))
	empty, err := store.List(ctx, "conv-1", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	assert.Error(t, store.Append(ctx, "", TranscriptMessage{Text: "x"}))
}

func TestTranscriptStore_Caps(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewTranscriptStore(client)
	store.maxMessages = 3

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(context.Background(), "c", TranscriptMessage{
			Role: RoleUser, Text: fmt.Sprintf("m%d", i), Timestamp: time.Unix(int64(i), 0).UTC(),
		}))
	}
	msgs, err := store.List(context.Background(), "c", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "m2", msgs[0].Text)
	assert.Equal(t, "m4", msgs[2].Text)
}

func TestTranscriptStore_NilIsNoop(t *testing.T) {
	var store *TranscriptStore
	assert.Nil(t, NewTranscriptStore(nil))
	assert.NoError(t, store.Append(context.Background(), "c", TranscriptMessage{Text: "x"}))
	msgs, err := store.List(context.Background(), "c", 0)
	assert.NoError(t, err)
	assert.Nil(t, msgs)
	assert.NoError(t, store.Delete(context.Background(), "c"))
}
