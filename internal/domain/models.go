package domain

import (
	"time"
)

type MatchStatus string

const (
	StatusNotStarted MatchStatus = "NOT_STARTED"
	StatusLive       MatchStatus = "LIVE"
	StatusFinished   MatchStatus = "FINISHED"
)

// Choice is a 1/X/2 prediction.
type Choice string

const (
	ChoiceHome Choice = "1"
	ChoiceDraw Choice = "X"
	ChoiceAway Choice = "2"
)

func (c Choice) Valid() bool {
	return c == ChoiceHome || c == ChoiceDraw || c == ChoiceAway
}

type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// VoteTally percentages are source-computed; the client never re-derives
// them from counts.
type VoteTally struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Votes struct {
	Home VoteTally `json:"home"`
	Draw VoteTally `json:"draw"`
	Away VoteTally `json:"away"`
}

type MatchSnapshot struct {
	ID               int64       `json:"id"`
	HomeTeam         string      `json:"home_team"`
	AwayTeam         string      `json:"away_team"`
	Score            Score       `json:"score"`
	Status           MatchStatus `json:"status"`
	StatusDetail     string      `json:"status_detail"`
	MatchMinute      int         `json:"match_minute"`
	Votes            Votes       `json:"votes"`
	TotalVotes       int         `json:"total_votes"`
	PredictionLocked bool        `json:"prediction_locked"`
	LockReason       string      `json:"lock_reason"`
	Competition      string      `json:"competition"`
	KickoffAt        time.Time   `json:"date_time"`

	// Featured is a client-side annotation; the push feed does not carry
	// it and merges must preserve it.
	Featured bool `json:"featured"`
}

// Locked reports whether predictions are closed for the match. A match
// that has kicked off is locked even if the push that flipped the status
// omitted the lock flag.
func (m MatchSnapshot) Locked() bool {
	return m.PredictionLocked || m.Status == StatusLive || m.Status == StatusFinished
}

type ConversationSummary struct {
	PeerUserID    string    `json:"peer_user_id"`
	PeerName      string    `json:"peer_name"`
	LastMessage   string    `json:"last_message"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int       `json:"unread_count"`
}

type FriendRequestDirection string

const (
	DirectionIncoming FriendRequestDirection = "incoming"
	DirectionOutgoing FriendRequestDirection = "outgoing"
)

type FriendRequest struct {
	RequestID string                 `json:"request_id"`
	Direction FriendRequestDirection `json:"direction"`
	UserID    string                 `json:"user_id"`
	Username  string                 `json:"username"`
	CreatedAt time.Time              `json:"created_at"`
}

type Friend struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
