package archive

import "time"

const recordVersion = "1.0"

// Outcomes recorded on archived transcripts.
const (
	OutcomeBooked    = "booked"
	OutcomeAbandoned = "abandoned"
)

// TranscriptRecord is the document written to S3 for one conversation.
type TranscriptRecord struct {
	Version         string    `json:"version"`
	ConversationID  string    `json:"conversation_id"`
	Channel         string    `json:"channel,omitempty"`
	ArchivedAt      time.Time `json:"archived_at"`
	DurationSeconds int       `json:"duration_seconds"`
	MessageCount    int       `json:"message_count"`
	Outcome         string    `json:"outcome"`
	Messages        []Message `json:"messages"`
}

// Message is a single transcript line with contact details scrubbed.
type Message struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	Kind      string    `json:"kind,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	ConversationID string `json:"conversation_id"`
	S3Key          string `json:"s3_key"`
	Channel        string `json:"channel,omitempty"`
	Outcome        string `json:"outcome"`
	MessageCount   int    `json:"message_count"`
	ArchivedAt     string `json:"archived_at"`
}
