package snackhub

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"snackbox/backend/internal/config"
	"snackbox/backend/internal/lifecycle"
	"snackbox/backend/internal/models"
	"snackbox/backend/internal/storage"

	"go.uber.org/zap"
)

// HandleEvent dispatches one inbound event from a connection's read pump.
// Every event except authenticate requires a bound identity; violations get
// an error event back rather than a silent drop so misbehaving clients are
// debuggable.
func (h *Hub) HandleEvent(c Client, ev models.Event) {
	if ev.Name == models.EventAuthenticate {
		h.handleAuthenticate(c, ev.Data)
		return
	}
	if c.UserID() == 0 {
		h.sendError(c, "authenticate first")
		return
	}

	switch ev.Name {
	case models.EventJoinSession:
		h.handleJoinSession(c, ev.Data)
	case models.EventSendMessage:
		h.handleSendMessage(c, ev.Data)
	case models.EventTyping:
		h.handleTyping(c, ev.Data)
	case models.EventRequestExtend:
		h.handleRequestExtend(c, ev.Data)
	case models.EventEndSession:
		h.handleEndSession(c, ev.Data)
	case models.EventPollMatch:
		h.handlePollMatch(c, ev.Data)
	default:
		h.sendError(c, "unknown event: "+ev.Name)
	}
}

func (h *Hub) handleAuthenticate(c Client, data json.RawMessage) {
	var p models.AuthenticatePayload
	if err := json.Unmarshal(data, &p); err != nil || p.UserID == 0 {
		h.sendError(c, "invalid authenticate payload")
		return
	}
	user, err := h.Storage.GetUserByID(p.UserID)
	if err != nil {
		h.sendError(c, "unknown user")
		return
	}
	h.bind(c, user.ID, user.Username)
	zap.L().Debug("connection authenticated",
		zap.String("connId", c.ConnID()), zap.Uint("userId", user.ID))
}

// handleJoinSession subscribes the connection to its session's group and
// tells the counterpart, if connected, that this participant is present.
func (h *Hub) handleJoinSession(c Client, data json.RawMessage) {
	var p models.JoinSessionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "invalid join-session payload")
		return
	}
	session, ok := h.participantSession(c, p.SessionID)
	if !ok {
		return
	}
	h.joinGroup(session.ID, c)

	ev, err := models.NewEvent(models.EventUserJoined, models.UserJoinedPayload{
		UserID:   c.UserID(),
		Username: c.Username(),
	})
	if err == nil {
		h.publish(models.Broadcast{
			TargetUserID: session.OtherParticipant(c.UserID()),
			Event:        ev,
		})
	}
}

// handleSendMessage persists the message, then fans it out to the whole
// group, sender included, so every client renders from the same event.
func (h *Hub) handleSendMessage(c Client, data json.RawMessage) {
	var p models.SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "invalid send-message payload")
		return
	}
	content := strings.TrimSpace(p.Content)
	if content == "" || utf8.RuneCountInString(content) > config.MaxMessageLength {
		h.sendError(c, "message must be 1-500 characters")
		return
	}

	session, ok := h.participantSession(c, p.SessionID)
	if !ok {
		return
	}
	session, err := h.Lifecycle.EndIfExpired(session)
	if err != nil {
		h.sendError(c, "failed to load session")
		return
	}
	if session.Status == models.SessionEnded {
		h.sendError(c, "session has ended")
		return
	}

	msg := &models.SnackMessage{
		SessionID: session.ID,
		SenderID:  c.UserID(),
		Content:   content,
	}
	if err := h.Storage.CreateMessage(msg); err != nil {
		zap.L().Error("failed to store message",
			zap.Uint("sessionId", session.ID), zap.Error(err))
		h.sendError(c, "failed to send message")
		return
	}

	sender, err := h.Storage.GetUserByID(c.UserID())
	if err != nil {
		h.sendError(c, "failed to send message")
		return
	}
	ev, err := models.NewEvent(models.EventNewMessage, models.NewMessagePayload{
		SnackMessage: *msg,
		Sender:       *sender,
	})
	if err == nil {
		h.publish(models.Broadcast{SessionID: session.ID, Event: ev})
	}
}

// handleTyping relays the indicator to everyone else in the group. Not
// persisted and not validated against session state; a stray indicator after
// expiry is harmless.
func (h *Hub) handleTyping(c Client, data json.RawMessage) {
	var p models.TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "invalid typing payload")
		return
	}
	ev, err := models.NewEvent(models.EventUserTyping, models.UserTypingPayload{
		UserID:   c.UserID(),
		Username: c.Username(),
		IsTyping: p.IsTyping,
	})
	if err != nil {
		return
	}
	h.publish(models.Broadcast{
		SessionID:     p.SessionID,
		ExcludeUserID: c.UserID(),
		Event:         ev,
	})
}

// handleRequestExtend forwards the advisory extend prompt to the counterpart.
// The actual extension happens over HTTP and needs no consent.
func (h *Hub) handleRequestExtend(c Client, data json.RawMessage) {
	var p models.RequestExtendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "invalid request-extend payload")
		return
	}
	session, ok := h.participantSession(c, p.SessionID)
	if !ok {
		return
	}
	if session.Status == models.SessionEnded {
		h.sendError(c, "session has ended")
		return
	}
	ev, err := models.NewEvent(models.EventExtendRequest, models.ExtendRequestPayload{
		FromUserID:   c.UserID(),
		FromUsername: c.Username(),
		SessionID:    session.ID,
	})
	if err == nil {
		h.publish(models.Broadcast{
			TargetUserID: session.OtherParticipant(c.UserID()),
			Event:        ev,
		})
	}
}

func (h *Hub) handleEndSession(c Client, data json.RawMessage) {
	var p models.EndSessionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "invalid end-session payload")
		return
	}
	if _, ok := h.participantSession(c, p.SessionID); !ok {
		return
	}
	if _, err := h.Lifecycle.End(p.SessionID, lifecycle.EndReasonCompleted); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			h.sendError(c, "session has already ended")
			return
		}
		zap.L().Error("failed to end session",
			zap.Uint("sessionId", p.SessionID), zap.Error(err))
		h.sendError(c, "failed to end session")
	}
}

// handlePollMatch answers a fallback poll for a request that may have been
// matched while the requester's realtime connection was down. Responds
// directly to the polling connection, not through redis.
func (h *Hub) handlePollMatch(c Client, data json.RawMessage) {
	var p models.PollMatchPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendError(c, "invalid poll-match payload")
		return
	}
	request, err := h.Storage.GetRequestByID(p.RequestID)
	if err != nil || request.CreatedBy != c.UserID() {
		h.sendError(c, "request not found")
		return
	}
	if request.Status != models.RequestMatched {
		return
	}
	session, err := h.Storage.ActiveSessionForUser(c.UserID())
	if err != nil || session == nil {
		return
	}
	view, err := h.Storage.SessionView(session.ID)
	if err != nil {
		return
	}
	if ev, err := models.NewEvent(models.EventMatched, models.MatchedPayload{Session: *view}); err == nil {
		h.trySend(c, ev)
	}
}

// participantSession loads the session and verifies the caller is one of its
// two participants, emitting the appropriate error event otherwise.
func (h *Hub) participantSession(c Client, sessionID uint) (*models.SnackSession, bool) {
	session, err := h.Storage.GetSessionByID(sessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.sendError(c, "session not found")
		} else {
			h.sendError(c, "failed to load session")
		}
		return nil, false
	}
	if !session.HasParticipant(c.UserID()) {
		h.sendError(c, "not a participant of this session")
		return nil, false
	}
	return session, true
}
