// Package chat holds the metered-usage core of Quill's AI chat: the
// settlement engine that reconciles a completed turn's token usage against
// the owning invite's quota, the append-only usage ledger, and the
// conversation access guard.
//
// The model call itself is external; by the time this package is involved the
// turn is complete and its token counts are known. Quota enforcement is
// therefore post-hoc and soft: a single in-flight turn may overshoot the
// quota, but two concurrent settlements can never both slip past it, because
// the quota check and the usage write are one guarded update inside the same
// transaction that persists the messages and the ledger entry.
package chat
