package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"footysync/internal/domain"
)

// Event is one decoded push frame. Every inbound message is a JSON
// envelope with a "type" discriminator; each known discriminator maps to
// exactly one concrete type below, so a dispatch site can switch
// exhaustively instead of probing a loose map.
type Event interface{ isEvent() }

// Envelope discriminators.
const (
	typePong          = "pong"
	typeMatchList     = "match_list"
	typeMatchUpdate   = "match_update"
	typeChatMessage   = "chat_message"
	typeChatDelivered = "chat_delivered"
	typeChatRead      = "chat_read"
	typeFriendRequest = "friend_request"
	typeFriendRemoved = "friend_removed"
	typeNotification  = "notification"
)

// MatchListEvent is a full broadcast snapshot of the match list.
type MatchListEvent struct {
	Matches []domain.MatchSnapshot `json:"matches"`
}

// MatchUpdateEvent is a partial update for one match. Absent fields are
// nil and must leave the local snapshot untouched.
type MatchUpdateEvent struct {
	MatchID          int64               `json:"id"`
	Score            *domain.Score       `json:"score"`
	Status           *domain.MatchStatus `json:"status"`
	StatusDetail     *string             `json:"status_detail"`
	MatchMinute      *int                `json:"match_minute"`
	Votes            *domain.Votes       `json:"votes"`
	TotalVotes       *int                `json:"total_votes"`
	PredictionLocked *bool               `json:"prediction_locked"`
	LockReason       *string             `json:"lock_reason"`
}

type ChatMessageEvent struct {
	MessageID  string    `json:"message_id"`
	FromUserID string    `json:"from_user_id"`
	FromName   string    `json:"from_name"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sent_at"`
}

type ChatDeliveredEvent struct {
	MessageID  string `json:"message_id"`
	PeerUserID string `json:"peer_user_id"`
}

// ChatReadEvent means this user's messages to the peer were read on
// another device; the conversation's unread count resets.
type ChatReadEvent struct {
	PeerUserID string `json:"peer_user_id"`
}

// Friend request lifecycle actions.
const (
	FriendRequestReceived  = "received"
	FriendRequestAccepted  = "accepted"
	FriendRequestDeclined  = "declined"
	FriendRequestCancelled = "cancelled"
)

type FriendRequestEvent struct {
	Action  string               `json:"action"`
	Request domain.FriendRequest `json:"request"`
}

// FriendRemovedEvent means the friendship ended, on either side.
type FriendRemovedEvent struct {
	UserID string `json:"user_id"`
}

type NotificationEvent struct {
	Notification domain.Notification `json:"notification"`
}

func (MatchListEvent) isEvent()     {}
func (MatchUpdateEvent) isEvent()   {}
func (ChatMessageEvent) isEvent()   {}
func (ChatDeliveredEvent) isEvent() {}
func (ChatReadEvent) isEvent()      {}
func (FriendRequestEvent) isEvent() {}
func (FriendRemovedEvent) isEvent() {}
func (NotificationEvent) isEvent()  {}

// decodeEvent parses one inbound frame. A nil, nil return means the frame
// is a keep-alive ack and must not reach listeners.
func decodeEvent(data []byte) (Event, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}

	switch env.Type {
	case typePong:
		return nil, nil
	case typeMatchList:
		return unmarshalEvent[MatchListEvent](data)
	case typeMatchUpdate:
		return unmarshalEvent[MatchUpdateEvent](data)
	case typeChatMessage:
		return unmarshalEvent[ChatMessageEvent](data)
	case typeChatDelivered:
		return unmarshalEvent[ChatDeliveredEvent](data)
	case typeChatRead:
		return unmarshalEvent[ChatReadEvent](data)
	case typeFriendRequest:
		return unmarshalEvent[FriendRequestEvent](data)
	case typeFriendRemoved:
		return unmarshalEvent[FriendRemovedEvent](data)
	case typeNotification:
		return unmarshalEvent[NotificationEvent](data)
	case "":
		return nil, fmt.Errorf("missing type discriminator")
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}

func unmarshalEvent[T Event](data []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("parse %T: %w", ev, err)
	}
	return ev, nil
}
