package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"footysync/internal/domain"
	"footysync/internal/realtime"
)

func ptr[T any](v T) *T { return &v }

func TestMergeMatchPreservesAbsentFields(t *testing.T) {
	existing := domain.MatchSnapshot{
		ID:          1,
		HomeTeam:    "Arsenal",
		AwayTeam:    "Spurs",
		Score:       domain.Score{Home: 0, Away: 0},
		Competition: "Premier League",
		Featured:    true,
	}

	merged := MergeMatch(existing, realtime.MatchUpdateEvent{
		MatchID: 1,
		Score:   &domain.Score{Home: 1, Away: 0},
	})

	assert.Equal(t, domain.Score{Home: 1, Away: 0}, merged.Score)
	assert.True(t, merged.Featured, "client-only annotation must survive the merge")
	assert.Equal(t, "Premier League", merged.Competition)
	assert.Equal(t, "Arsenal", merged.HomeTeam)
}

func TestMergeMatchLocksOnLiveStatus(t *testing.T) {
	existing := domain.MatchSnapshot{ID: 1, Status: domain.StatusNotStarted}

	merged := MergeMatch(existing, realtime.MatchUpdateEvent{
		MatchID: 1,
		Status:  ptr(domain.StatusLive),
	})

	assert.Equal(t, domain.StatusLive, merged.Status)
	assert.True(t, merged.PredictionLocked, "a live match is locked even when the push omits the flag")
}

func TestApplyMatchUpdateIgnoresUnknownAndMalformed(t *testing.T) {
	matches := []domain.MatchSnapshot{{ID: 1}, {ID: 2}}

	out := ApplyMatchUpdate(matches, realtime.MatchUpdateEvent{MatchID: 99, Score: &domain.Score{Home: 3}})
	assert.Equal(t, matches, out)

	out = ApplyMatchUpdate(matches, realtime.MatchUpdateEvent{Score: &domain.Score{Home: 3}})
	assert.Equal(t, matches, out)
}

func TestApplyMatchUpdateDoesNotMutateInput(t *testing.T) {
	matches := []domain.MatchSnapshot{{ID: 1, Score: domain.Score{Home: 0}}}

	out := ApplyMatchUpdate(matches, realtime.MatchUpdateEvent{MatchID: 1, Score: &domain.Score{Home: 2}})

	assert.Equal(t, 0, matches[0].Score.Home, "input collection must stay untouched")
	assert.Equal(t, 2, out[0].Score.Home)
}

func TestApplyMatchListCarriesFeaturedForward(t *testing.T) {
	existing := []domain.MatchSnapshot{
		{ID: 1, Featured: true},
		{ID: 2},
	}
	incoming := []domain.MatchSnapshot{
		{ID: 1, Score: domain.Score{Home: 1}},
		{ID: 3},
	}

	out := ApplyMatchList(existing, incoming)

	require.Len(t, out, 2)
	assert.True(t, out[0].Featured)
	assert.False(t, out[1].Featured)
	assert.Equal(t, 1, out[0].Score.Home)
}

func TestTouchConversationMovesToFrontAndBumpsUnread(t *testing.T) {
	now := time.Now()
	list := []domain.ConversationSummary{
		{PeerUserID: "a", LastMessage: "hey", UnreadCount: 0},
		{PeerUserID: "b", LastMessage: "yo", UnreadCount: 2},
		{PeerUserID: "c", LastMessage: "hi", UnreadCount: 1},
	}

	out := TouchConversation(list, realtime.ChatMessageEvent{
		FromUserID: "b",
		Body:       "did you see the score?!",
		SentAt:     now,
	})

	require.Len(t, out, 3)
	assert.Equal(t, "b", out[0].PeerUserID)
	assert.Equal(t, 3, out[0].UnreadCount)
	assert.Equal(t, "did you see the score?!", out[0].LastMessage)
	assert.Equal(t, now, out[0].LastMessageAt)
	// others keep relative order
	assert.Equal(t, "a", out[1].PeerUserID)
	assert.Equal(t, "c", out[2].PeerUserID)
}

func TestTouchConversationCreatesEntryForNewPeer(t *testing.T) {
	out := TouchConversation(nil, realtime.ChatMessageEvent{FromUserID: "z", FromName: "Zoe", Body: "hello"})
	require.Len(t, out, 1)
	assert.Equal(t, "z", out[0].PeerUserID)
	assert.Equal(t, "Zoe", out[0].PeerName)
	assert.Equal(t, 1, out[0].UnreadCount)

	// same peer again: touch, never a duplicate
	out = TouchConversation(out, realtime.ChatMessageEvent{FromUserID: "z", Body: "again"})
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0].UnreadCount)
}

func TestTouchConversationDropsMalformedEvent(t *testing.T) {
	list := []domain.ConversationSummary{{PeerUserID: "a"}}
	out := TouchConversation(list, realtime.ChatMessageEvent{Body: "no sender"})
	assert.Equal(t, list, out)
}

func TestMarkConversationRead(t *testing.T) {
	list := []domain.ConversationSummary{
		{PeerUserID: "a", UnreadCount: 4},
		{PeerUserID: "b", UnreadCount: 1},
	}

	out := MarkConversationRead(list, "a")
	assert.Equal(t, 0, out[0].UnreadCount)
	assert.Equal(t, "a", out[0].PeerUserID, "reading must not reorder")
	assert.Equal(t, 4, list[0].UnreadCount, "input untouched")

	out = MarkConversationRead(list, "missing")
	assert.Equal(t, list, out)
}

func TestAddFriendIsIdempotent(t *testing.T) {
	friends := AddFriend(nil, domain.Friend{UserID: "u1", Username: "ana"})
	friends = AddFriend(friends, domain.Friend{UserID: "u1", Username: "ana"})

	require.Len(t, friends, 1)

	friends = RemoveFriend(friends, "u1")
	assert.Empty(t, friends)

	// removing again is a no-op
	friends = RemoveFriend(friends, "u1")
	assert.Empty(t, friends)
}

func TestFriendRequestCounterClampsAtZero(t *testing.T) {
	requests := []domain.FriendRequest{{RequestID: "fr-1", Direction: domain.DirectionIncoming}}

	out, pending := ApplyFriendRequestEvent(requests, 0, realtime.FriendRequestEvent{
		Action:  realtime.FriendRequestDeclined,
		Request: domain.FriendRequest{RequestID: "fr-1"},
	})

	assert.Empty(t, out)
	assert.Equal(t, 0, pending, "decrement must clamp at zero")
}

func TestResolvedOutgoingRequestKeepsPendingCount(t *testing.T) {
	requests := []domain.FriendRequest{
		{RequestID: "fr-in", Direction: domain.DirectionIncoming, UserID: "u1"},
		{RequestID: "fr-out", Direction: domain.DirectionOutgoing, UserID: "u2"},
	}

	// the peer declines our outgoing request; the incoming badge is theirs,
	// not ours, so it must not move
	out, pending := ApplyFriendRequestEvent(requests, 1, realtime.FriendRequestEvent{
		Action:  realtime.FriendRequestDeclined,
		Request: domain.FriendRequest{RequestID: "fr-out"},
	})
	require.Len(t, out, 1)
	assert.Equal(t, "fr-in", out[0].RequestID)
	assert.Equal(t, 1, pending)

	// resolving the incoming one does decrement
	out, pending = ApplyFriendRequestEvent(out, pending, realtime.FriendRequestEvent{
		Action:  realtime.FriendRequestAccepted,
		Request: domain.FriendRequest{RequestID: "fr-in"},
	})
	assert.Empty(t, out)
	assert.Equal(t, 0, pending)
}

func TestUnknownRequestResolutionIsANoOp(t *testing.T) {
	requests := []domain.FriendRequest{{RequestID: "fr-1", Direction: domain.DirectionIncoming}}

	out, pending := ApplyFriendRequestEvent(requests, 1, realtime.FriendRequestEvent{
		Action:  realtime.FriendRequestCancelled,
		Request: domain.FriendRequest{RequestID: "fr-unknown"},
	})
	assert.Equal(t, requests, out)
	assert.Equal(t, 1, pending)
}

func TestFriendRequestLifecycle(t *testing.T) {
	req := domain.FriendRequest{RequestID: "fr-1", Direction: domain.DirectionIncoming, UserID: "u7"}

	requests, pending := ApplyFriendRequestEvent(nil, 0, realtime.FriendRequestEvent{
		Action: realtime.FriendRequestReceived, Request: req,
	})
	require.Len(t, requests, 1)
	assert.Equal(t, 1, pending)

	// duplicate receive is a no-op
	requests, pending = ApplyFriendRequestEvent(requests, pending, realtime.FriendRequestEvent{
		Action: realtime.FriendRequestReceived, Request: req,
	})
	require.Len(t, requests, 1)
	assert.Equal(t, 1, pending)

	requests, pending = ApplyFriendRequestEvent(requests, pending, realtime.FriendRequestEvent{
		Action: realtime.FriendRequestAccepted, Request: req,
	})
	assert.Empty(t, requests)
	assert.Equal(t, 0, pending)
}

func TestFriendRequestEventWithoutIDIsDropped(t *testing.T) {
	requests := []domain.FriendRequest{{RequestID: "fr-1"}}

	out, pending := ApplyFriendRequestEvent(requests, 1, realtime.FriendRequestEvent{Action: realtime.FriendRequestReceived})
	assert.Equal(t, requests, out)
	assert.Equal(t, 1, pending)
}
