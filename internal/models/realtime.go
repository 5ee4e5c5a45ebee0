package models

import "encoding/json"

// Realtime event names. The snack: prefix namespaces the channel, matching
// the client contract.
const (
	// Client -> server.
	EventAuthenticate  = "snack:authenticate"
	EventJoinSession   = "snack:join-session"
	EventSendMessage   = "snack:send-message"
	EventTyping        = "snack:typing"
	EventRequestExtend = "snack:request-extend"
	EventEndSession    = "snack:end-session"
	EventPollMatch     = "snack:poll-match"

	// Server -> client.
	EventMatched       = "snack:matched"
	EventNewMessage    = "snack:new-message"
	EventUserTyping    = "snack:user-typing"
	EventSessionEnded  = "snack:session-ended"
	EventExtendRequest = "snack:extend-request"
	EventUserJoined    = "snack:user-joined"
	EventError         = "snack:error"
)

// Event is the wire envelope for the realtime channel, both directions.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an envelope. Payloads are plain structs, so
// marshalling only fails on programmer error; callers may ignore the error
// for server-built events.
func NewEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Data: data}, nil
}

// Broadcast is the fanout unit relayed over redis pub/sub between gateway
// instances. TargetUserID routes to a single user's connection; otherwise
// the event goes to the session group, minus ExcludeUserID if set.
type Broadcast struct {
	SessionID     uint  `json:"sessionId,omitempty"`
	TargetUserID  uint  `json:"targetUserId,omitempty"`
	ExcludeUserID uint  `json:"excludeUserId,omitempty"`
	Event         Event `json:"event"`
}

// Client -> server payloads.

type AuthenticatePayload struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
}

type JoinSessionPayload struct {
	SessionID uint `json:"sessionId"`
}

type SendMessagePayload struct {
	SessionID uint   `json:"sessionId"`
	Content   string `json:"content"`
}

type TypingPayload struct {
	SessionID uint `json:"sessionId"`
	IsTyping  bool `json:"isTyping"`
}

type RequestExtendPayload struct {
	SessionID uint `json:"sessionId"`
}

type EndSessionPayload struct {
	SessionID uint `json:"sessionId"`
}

type PollMatchPayload struct {
	RequestID uint `json:"requestId"`
}

// Server -> client payloads.

type MatchedPayload struct {
	Session SessionView `json:"session"`
}

// NewMessagePayload spreads the message fields and attaches the sender
// projection, mirroring the REST message shape.
type NewMessagePayload struct {
	SnackMessage
	Sender User `json:"sender"`
}

type UserTypingPayload struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type SessionEndedPayload struct {
	SessionID uint   `json:"sessionId"`
	Reason    string `json:"reason"`
}

type ExtendRequestPayload struct {
	FromUserID   uint   `json:"fromUserId"`
	FromUsername string `json:"fromUsername"`
	SessionID    uint   `json:"sessionId"`
}

type UserJoinedPayload struct {
	Username string `json:"username"`
	UserID   uint   `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
