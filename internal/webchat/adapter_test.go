package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/internal/dialog"
	"github.com/wolfman30/flymebot/pkg/logging"
	"golang.org/x/net/websocket"
)

func TestReplyMessenger_DeliverActivities(t *testing.T) {
	h := NewHandler(&mockPublisher{}, nil, logging.Discard())
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv, "sess1")
	waitForSession(t, h, "webchat:sess1")

	m := NewReplyMessenger(h, logging.Discard())
	card := dialog.Attachment{ContentType: "application/vnd.microsoft.card.adaptive", Content: json.RawMessage(`{"type":"AdaptiveCard"}`)}
	resp := &conversation.Response{
		ConversationID: "webchat:sess1",
		Status:         dialog.StatusWaiting,
		Timestamp:      time.Date(2023, 5, 17, 10, 0, 0, 0, time.UTC),
		Activities: []dialog.Activity{
			dialog.Delay(500 * time.Millisecond),
			dialog.WithAttachment(card),
			{Type: dialog.ActivityMessage, Text: "Is this correct?", Choices: []string{"Yep", "Nope"}, InputHint: dialog.HintExpecting},
		},
	}
	require.NoError(t, m.Deliver(context.Background(), resp))

	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "typing", msg.Type)
	assert.Equal(t, 500, msg.DelayMS)

	msg = OutboundMessage{}
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "message", msg.Type)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, card.ContentType, msg.Attachments[0].ContentType)

	msg = OutboundMessage{}
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "Is this correct?", msg.Text)
	assert.Equal(t, []string{"Yep", "Nope"}, msg.Choices)
	assert.True(t, msg.Expecting)
	assert.Equal(t, "bot", msg.Role)
	assert.Equal(t, "2023-05-17T10:00:00Z", msg.Timestamp)
}

func TestReplyMessenger_SkipsOtherChannelsAndOfflineSessions(t *testing.T) {
	h := NewHandler(&mockPublisher{}, nil, logging.Discard())
	m := NewReplyMessenger(h, logging.Discard())

	assert.NoError(t, m.Deliver(context.Background(), &conversation.Response{
		ConversationID: "api:123",
		Activities:     []dialog.Activity{dialog.Message("hi")},
	}))
	assert.NoError(t, m.Deliver(context.Background(), &conversation.Response{
		ConversationID: "webchat:offline",
		Activities:     []dialog.Activity{dialog.Message("hi")},
	}))
	assert.Error(t, m.Deliver(context.Background(), nil))
}
