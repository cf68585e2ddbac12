// Package reconcile merges server push events into client-side
// collections. Every function is pure: it takes the current collection
// and the event, returns the new collection, and never mutates its
// input. Malformed events (missing identity) are no-ops; fields a push
// omits keep their previous values.
package reconcile

import (
	"slices"

	"footysync/internal/domain"
	"footysync/internal/realtime"
)

// MergeMatch folds a partial update into an existing snapshot. Only
// fields present in the push are applied; client-only annotations like
// Featured survive untouched. A match that moves to LIVE or FINISHED is
// locked even when the push omits the lock flag.
func MergeMatch(existing domain.MatchSnapshot, ev realtime.MatchUpdateEvent) domain.MatchSnapshot {
	merged := existing
	if ev.Score != nil {
		merged.Score = *ev.Score
	}
	if ev.Status != nil {
		merged.Status = *ev.Status
	}
	if ev.StatusDetail != nil {
		merged.StatusDetail = *ev.StatusDetail
	}
	if ev.MatchMinute != nil {
		merged.MatchMinute = *ev.MatchMinute
	}
	if ev.Votes != nil {
		merged.Votes = *ev.Votes
	}
	if ev.TotalVotes != nil {
		merged.TotalVotes = *ev.TotalVotes
	}
	if ev.PredictionLocked != nil {
		merged.PredictionLocked = *ev.PredictionLocked
	}
	if ev.LockReason != nil {
		merged.LockReason = *ev.LockReason
	}
	if merged.Status == domain.StatusLive || merged.Status == domain.StatusFinished {
		merged.PredictionLocked = true
	}
	return merged
}

// ApplyMatchUpdate merges the update into the matching entry of the
// list. Unknown match ids and updates without an id are no-ops.
func ApplyMatchUpdate(matches []domain.MatchSnapshot, ev realtime.MatchUpdateEvent) []domain.MatchSnapshot {
	if ev.MatchID == 0 {
		return matches
	}
	idx := slices.IndexFunc(matches, func(m domain.MatchSnapshot) bool { return m.ID == ev.MatchID })
	if idx < 0 {
		return matches
	}
	out := slices.Clone(matches)
	out[idx] = MergeMatch(out[idx], ev)
	return out
}

// ApplyMatchList replaces the list with a full snapshot, carrying the
// client-only Featured annotation forward from the previous list.
func ApplyMatchList(existing, incoming []domain.MatchSnapshot) []domain.MatchSnapshot {
	featured := make(map[int64]bool, len(existing))
	for _, m := range existing {
		if m.Featured {
			featured[m.ID] = true
		}
	}
	out := slices.Clone(incoming)
	for i := range out {
		if featured[out[i].ID] {
			out[i].Featured = true
		}
	}
	return out
}

// TouchConversation applies an incoming chat message: the peer's entry
// moves to the front with its unread count bumped and last message
// replaced; everyone else keeps their relative order. A first message
// from an unknown peer creates the entry, never a duplicate.
func TouchConversation(list []domain.ConversationSummary, ev realtime.ChatMessageEvent) []domain.ConversationSummary {
	if ev.FromUserID == "" {
		return list
	}

	touched := domain.ConversationSummary{
		PeerUserID: ev.FromUserID,
		PeerName:   ev.FromName,
	}
	rest := make([]domain.ConversationSummary, 0, len(list))
	for _, conv := range list {
		if conv.PeerUserID == ev.FromUserID {
			touched = conv
			continue
		}
		rest = append(rest, conv)
	}

	touched.LastMessage = ev.Body
	touched.LastMessageAt = ev.SentAt
	touched.UnreadCount++

	return append([]domain.ConversationSummary{touched}, rest...)
}

// MarkConversationRead zeroes the peer's unread count in place in the
// ordering; reading does not reorder the list.
func MarkConversationRead(list []domain.ConversationSummary, peerUserID string) []domain.ConversationSummary {
	idx := slices.IndexFunc(list, func(c domain.ConversationSummary) bool { return c.PeerUserID == peerUserID })
	if idx < 0 {
		return list
	}
	out := slices.Clone(list)
	out[idx].UnreadCount = 0
	return out
}

// AddFriend inserts by user id; adding a friend already present is a
// no-op, not a duplicate.
func AddFriend(friends []domain.Friend, f domain.Friend) []domain.Friend {
	if f.UserID == "" {
		return friends
	}
	if slices.ContainsFunc(friends, func(x domain.Friend) bool { return x.UserID == f.UserID }) {
		return friends
	}
	return append(slices.Clone(friends), f)
}

// RemoveFriend removes by user id; removing an absent friend is a no-op.
func RemoveFriend(friends []domain.Friend, userID string) []domain.Friend {
	idx := slices.IndexFunc(friends, func(x domain.Friend) bool { return x.UserID == userID })
	if idx < 0 {
		return friends
	}
	return slices.Delete(slices.Clone(friends), idx, idx+1)
}

// ApplyFriendRequestEvent folds a lifecycle event into the pending list
// and its running counter. The counter only moves by the delta the event
// implies and clamps at zero on decrement.
func ApplyFriendRequestEvent(requests []domain.FriendRequest, pending int, ev realtime.FriendRequestEvent) ([]domain.FriendRequest, int) {
	if ev.Request.RequestID == "" {
		return requests, pending
	}

	idx := slices.IndexFunc(requests, func(r domain.FriendRequest) bool { return r.RequestID == ev.Request.RequestID })

	switch ev.Action {
	case realtime.FriendRequestReceived:
		if idx >= 0 {
			return requests, pending
		}
		return append(slices.Clone(requests), ev.Request), pending + 1

	case realtime.FriendRequestAccepted, realtime.FriendRequestDeclined, realtime.FriendRequestCancelled:
		if idx < 0 {
			return requests, pending
		}
		// Only incoming requests back the pending badge; resolving an
		// outgoing one must leave it alone.
		removed := requests[idx]
		requests = slices.Delete(slices.Clone(requests), idx, idx+1)
		if removed.Direction == domain.DirectionIncoming && pending > 0 {
			pending--
		}
		return requests, pending

	default:
		return requests, pending
	}
}
