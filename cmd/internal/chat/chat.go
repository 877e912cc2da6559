package chat

import "time"

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Usage carries the token counts reported for a completed model turn.
type Usage struct {
	Input  int64
	Output int64
	Total  int64
}

// Message mirrors the quill.chat_messages row.
//
// ChatID is a caller-chosen conversation key (UUID-shaped); conversations
// are never pre-allocated, they exist once their first message does.
type Message struct {
	ID           string
	ChatID       string
	SessionID    string
	InviteCodeID string
	Role         Role
	Provider     string
	Model        string
	Usage        Usage
	Content      string
	CreatedAt    time.Time
}

// EntryType classifies a usage ledger entry.
type EntryType string

const (
	EntryModelTokens     EntryType = "model_tokens"
	EntryToolUsage       EntryType = "tool_usage"
	EntryAdminAdjustment EntryType = "admin_adjustment"
)

// LedgerEntry mirrors the quill.usage_ledger row. Entries are append-only:
// never updated, never deleted. At the moment of each settlement the ledger
// reconciles to the invite's tokens_consumed.
type LedgerEntry struct {
	ID           string
	InviteCodeID string
	SessionID    *string
	ChatID       *string
	MessageID    *string
	EntryType    EntryType
	Usage        Usage
	Provider     string
	Model        string
	Note         string
	CreatedAt    time.Time
}
