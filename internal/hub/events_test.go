package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/johnrmarty/chat-prd/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestClientEventWireFormat(t *testing.T) {
	tcases := []struct {
		name string
		raw  string
		want func(t *testing.T, ev ClientEvent)
	}{
		{
			name: "join-project",
			raw:  `{"join-project":{"projectId":"proj-1","sessionId":"sess-1","userId":"user-1","username":"alice"}}`,
			want: func(t *testing.T, ev ClientEvent) {
				assert.NotNil(t, ev.Join)
				assert.Equal(t, "proj-1", ev.Join.ProjectId)
				assert.Equal(t, "sess-1", ev.Join.SessionId)
				assert.Equal(t, "alice", ev.Join.Username)
			},
		},
		{
			name: "new-message with arbitrary payload",
			raw:  `{"new-message":{"projectId":"proj-1","message":{"role":"user","content":"hi","extra":true}}}`,
			want: func(t *testing.T, ev ClientEvent) {
				assert.NotNil(t, ev.Message)
				assert.Equal(t, "proj-1", ev.Message.ProjectId)
				assert.JSONEq(t, `{"role":"user","content":"hi","extra":true}`, string(ev.Message.Message))
			},
		},
		{
			name: "generating-content",
			raw:  `{"generating-content":{"projectId":"proj-1","contentType":"problem-statement"}}`,
			want: func(t *testing.T, ev ClientEvent) {
				assert.NotNil(t, ev.Generating)
				assert.Equal(t, "problem-statement", ev.Generating.ContentType)
			},
		},
		{
			name: "content-generated",
			raw:  `{"content-generated":{"projectId":"proj-1","contentType":"solution-proposal","content":"text"}}`,
			want: func(t *testing.T, ev ClientEvent) {
				assert.NotNil(t, ev.Generated)
				assert.Equal(t, "text", ev.Generated.Content)
			},
		},
		{
			name: "leave-project",
			raw:  `{"leave-project":{"projectId":"proj-1"}}`,
			want: func(t *testing.T, ev ClientEvent) {
				assert.NotNil(t, ev.Leave)
				assert.Equal(t, "proj-1", ev.Leave.ProjectId)
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			var ev ClientEvent
			err := json.Unmarshal([]byte(tc.raw), &ev)
			assert.NoError(t, err, "failed to parse event")
			tc.want(t, ev)
		})
	}
}

func TestServerEventWireFormat(t *testing.T) {
	ev := &ServerEvent{
		Timestamp: Now(),
		ActiveUsers: []types.Session{
			{SessionId: "sess-1", UserId: "user-1", Username: "alice"},
		},
	}

	raw, err := serializeEvent(ev)
	assert.NoError(t, err, "failed to serialize event")

	var decoded map[string]json.RawMessage
	err = json.Unmarshal(raw, &decoded)
	assert.NoError(t, err, "failed to decode serialized event")

	assert.Contains(t, decoded, "timestamp", "expected timestamp on the wire")
	assert.Contains(t, decoded, "active-users-updated", "expected wire event name")
	assert.NotContains(t, decoded, "message-received", "expected unset events to be omitted")
	assert.NotContains(t, decoded, "SkipClient", "expected internal routing fields to stay off the wire")
}

func TestNow(t *testing.T) {
	now := Now()
	assert.Equal(t, time.UTC, now.Location(), "expected UTC")
	assert.Equal(t, now, now.Round(time.Millisecond), "expected millisecond precision")

	ts, err := time.Parse(time.RFC3339Nano, IsoNow())
	assert.NoError(t, err, "expected IsoNow to be RFC3339")
	assert.WithinDuration(t, now, ts, time.Second)
}
