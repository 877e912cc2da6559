// Package chatapi exposes Quill's invite/session/history endpoints.
//
// The boundary translates the typed results of the session and chat services
// into the wire error taxonomy. Invite-code failures may name their category
// (invalid, disabled, exhausted); session-validity failures always collapse
// to one generic unauthenticated response so the API cannot be used as an
// enumeration oracle.
package chatapi

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"quill/cmd/internal/auth/session"
	"quill/cmd/internal/chat"
	"quill/cmd/internal/invite"
	"quill/cmd/internal/metrics"

	"github.com/google/uuid"
)

// Wire error codes.
const (
	codeInvalidRequest      = "INVALID_REQUEST"
	codeInvalidInviteCode   = "INVALID_INVITE_CODE"
	codeInviteCodeDisabled  = "INVITE_CODE_DISABLED"
	codeInviteCodeExhausted = "INVITE_CODE_EXHAUSTED"
	codeRateLimited         = "RATE_LIMITED"
	codeUnauthenticated     = "UNAUTHENTICATED"
	codeForbidden           = "FORBIDDEN"
	codeInternal            = "INTERNAL"
)

// Handler wires HTTP endpoints to the session and chat services.
type Handler struct {
	log      *slog.Logger
	cfg      Config
	sessions *session.Service
	chats    *chat.Service
	sharer   *chat.Sharer
	limiter  *KeyedLimiter
}

// NewHandler constructs a chat API handler.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, chats *chat.Service, sharer *chat.Sharer) (*Handler, error) {
	if sessions == nil || chats == nil || sharer == nil {
		return nil, errors.New("chatapi: nil service")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		log:      log,
		cfg:      cfg,
		sessions: sessions,
		chats:    chats,
		sharer:   sharer,
		limiter:  NewKeyedLimiter(cfg.SessionCreateLimit, cfg.SessionCreateWindow),
	}, nil
}

// Register wires routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/session", h.handleSession)
	mux.HandleFunc("/history", h.handleHistory)
	mux.HandleFunc("/share", h.handleShareCreate)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleSessionCreate(w, r)
	case http.MethodGet:
		h.handleSessionGet(w, r)
	case http.MethodDelete:
		h.handleSessionDelete(w, r)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
	}
}

type createSessionRequest struct {
	InviteCode string `json:"inviteCode"`
}

type sessionState struct {
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	InviteLabel   string     `json:"inviteLabel,omitempty"`
}

type sessionEnvelope struct {
	OK      bool         `json:"ok"`
	Session sessionState `json:"session"`
}

func (h *Handler) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	if ip := clientIP(r, h.cfg.TrustProxy); ip != nil {
		if !h.limiter.Allow(ip.String(), now) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, codeRateLimited, "too many attempts")
			return
		}
	}

	var req createSessionRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid body")
		return
	}
	if req.InviteCode == "" {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "inviteCode is required")
		return
	}

	// A cookie from a prior session rotates: the old session is revoked in
	// the same transaction that creates the new one.
	previousToken, _ := h.sessionTokenFromCookie(r)

	issued, err := h.sessions.Create(r.Context(), req.InviteCode, previousToken, now)
	if err != nil {
		switch {
		case errors.Is(err, invite.ErrNotFound):
			writeError(w, http.StatusUnauthorized, codeInvalidInviteCode, "invalid invite code")
		case errors.Is(err, invite.ErrDisabled):
			writeError(w, http.StatusForbidden, codeInviteCodeDisabled, "invite code disabled")
		case errors.Is(err, invite.ErrExhausted):
			writeError(w, http.StatusForbidden, codeInviteCodeExhausted, "invite code exhausted")
		default:
			h.log.Error("session.create.fail", "err", err)
			writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		}
		return
	}

	metrics.SessionsIssuedTotal.Inc()
	h.setSessionCookie(w, issued.Token, issued.ExpiresAt, now)
	h.log.Info("session.created", "session_id", issued.SessionID)

	exp := issued.ExpiresAt
	writeJSON(w, http.StatusOK, sessionEnvelope{
		OK: true,
		Session: sessionState{
			Authenticated: true,
			ExpiresAt:     &exp,
			InviteLabel:   issued.InviteLabel,
		},
	})
}

func (h *Handler) handleSessionGet(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	tok, ok := h.sessionTokenFromCookie(r)
	if !ok {
		writeJSON(w, http.StatusOK, sessionEnvelope{OK: true, Session: sessionState{}})
		return
	}

	authCtx, err := h.sessions.Verify(r.Context(), tok, now)
	if err != nil {
		h.log.Error("session.get.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	if authCtx == nil {
		writeJSON(w, http.StatusOK, sessionEnvelope{OK: true, Session: sessionState{}})
		return
	}

	exp := authCtx.ExpiresAt
	writeJSON(w, http.StatusOK, sessionEnvelope{
		OK: true,
		Session: sessionState{
			Authenticated: true,
			ExpiresAt:     &exp,
			InviteLabel:   authCtx.InviteLabel,
		},
	})
}

func (h *Handler) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	if tok, ok := h.sessionTokenFromCookie(r); ok {
		if err := h.sessions.Revoke(r.Context(), tok, now); err != nil {
			h.log.Error("session.revoke.fail", "err", err)
			writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
			return
		}
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type messageResponse struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Model       string    `json:"model,omitempty"`
	TotalTokens int64     `json:"totalTokens,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type historyEnvelope struct {
	OK       bool              `json:"ok"`
	ChatID   string            `json:"chatId"`
	Shared   bool              `json:"shared"`
	Messages []messageResponse `json:"messages"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}
	now := time.Now().UTC()

	chatID := r.URL.Query().Get("chatId")
	if _, err := uuid.Parse(chatID); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "chatId must be a UUID")
		return
	}

	// A valid share token bypasses session ownership entirely.
	if share := r.URL.Query().Get("share"); share != "" && h.sharer.Verify(chatID, share, now) {
		h.writeHistory(w, r, chatID, true)
		return
	}

	tok, ok := h.sessionTokenFromCookie(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
		return
	}
	authCtx, err := h.sessions.Verify(r.Context(), tok, now)
	if err != nil {
		h.log.Error("history.verify.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
		return
	}

	access, err := h.chats.AccessState(r.Context(), chatID, authCtx.SessionID)
	if err != nil {
		h.log.Error("history.access.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	if access != chat.AccessOK {
		writeError(w, http.StatusForbidden, codeForbidden, "forbidden")
		return
	}

	h.writeHistory(w, r, chatID, false)
}

func (h *Handler) writeHistory(w http.ResponseWriter, r *http.Request, chatID string, shared bool) {
	msgs, err := h.chats.History(r.Context(), chatID)
	if err != nil {
		h.log.Error("history.fetch.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}

	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{
			ID:          m.ID,
			Role:        string(m.Role),
			Content:     m.Content,
			Model:       m.Model,
			TotalTokens: m.Usage.Total,
			CreatedAt:   m.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, historyEnvelope{
		OK:       true,
		ChatID:   chatID,
		Shared:   shared,
		Messages: out,
	})
}

type createShareRequest struct {
	ChatID string `json:"chatId"`
}

type shareEnvelope struct {
	OK         bool   `json:"ok"`
	ChatID     string `json:"chatId"`
	ShareToken string `json:"shareToken"`
}

// handleShareCreate mints a share token for a conversation the caller owns.
func (h *Handler) handleShareCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, codeInvalidRequest, "method not allowed")
		return
	}
	now := time.Now().UTC()

	var req createShareRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "invalid body")
		return
	}
	if _, err := uuid.Parse(req.ChatID); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, "chatId must be a UUID")
		return
	}

	tok, ok := h.sessionTokenFromCookie(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
		return
	}
	authCtx, err := h.sessions.Verify(r.Context(), tok, now)
	if err != nil {
		h.log.Error("share.verify.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	if authCtx == nil {
		writeError(w, http.StatusUnauthorized, codeUnauthenticated, "authentication required")
		return
	}

	access, err := h.chats.AccessState(r.Context(), req.ChatID, authCtx.SessionID)
	if err != nil {
		h.log.Error("share.access.fail", "err", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
		return
	}
	if access != chat.AccessOK {
		writeError(w, http.StatusForbidden, codeForbidden, "forbidden")
		return
	}

	writeJSON(w, http.StatusOK, shareEnvelope{
		OK:         true,
		ChatID:     req.ChatID,
		ShareToken: h.sharer.Mint(req.ChatID, now),
	})
}
