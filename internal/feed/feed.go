// Package feed owns the client-side collections the UI renders: the
// match list, the conversation list, friend state and the running
// counters. It is fed by the realtime channels, folds every push through
// the reconcile functions, and hands subscribers immutable snapshots.
// Page-load reads go through the cache first so repeat navigation paints
// the previous result instead of a spinner.
package feed

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"footysync/internal/cache"
	"footysync/internal/constants"
	"footysync/internal/domain"
	"footysync/internal/predict"
	"footysync/internal/realtime"
	"footysync/internal/reconcile"
)

// Backend is the slice of the REST client the feed needs.
type Backend interface {
	ListMatches(ctx context.Context, leagueID string) ([]domain.MatchSnapshot, error)
	ListConversations(ctx context.Context) ([]domain.ConversationSummary, error)
	ListFriendRequests(ctx context.Context) ([]domain.FriendRequest, error)
	ListFriends(ctx context.Context) ([]domain.Friend, error)
}

// Snapshot is an immutable copy of the synchronized state.
type Snapshot struct {
	LeagueID       string
	Matches        []domain.MatchSnapshot
	Conversations  []domain.ConversationSummary
	FriendRequests []domain.FriendRequest
	Friends        []domain.Friend
	Notifications  []domain.Notification
	PendingCount   int
	UnreadTotal    int
}

type Service struct {
	backend Backend
	cache   *cache.Cache
	coord   *predict.Coordinator
	logger  zerolog.Logger

	mu             sync.Mutex
	leagueID       string
	matchGen       int64
	matches        []domain.MatchSnapshot
	conversations  []domain.ConversationSummary
	friendRequests []domain.FriendRequest
	friends        []domain.Friend
	notifications  []domain.Notification
	pendingCount   int
	unreadTotal    int
	subscribers    []func(Snapshot)
}

func New(backend Backend, c *cache.Cache, coord *predict.Coordinator, logger zerolog.Logger) *Service {
	return &Service{
		backend: backend,
		cache:   c,
		coord:   coord,
		logger:  logger,
	}
}

// Bind attaches the service to the realtime channels. The user feed is
// nil while no user is known.
func (s *Service) Bind(feeds *realtime.Feeds) {
	feeds.Matches.Subscribe(s.HandleMatchEvent)
	if feeds.User != nil {
		feeds.User.Subscribe(s.HandleUserEvent)
	}
}

// Subscribe registers a callback invoked with a fresh snapshot after
// every state change.
func (s *Service) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() Snapshot {
	return Snapshot{
		LeagueID:       s.leagueID,
		Matches:        slices.Clone(s.matches),
		Conversations:  slices.Clone(s.conversations),
		FriendRequests: slices.Clone(s.friendRequests),
		Friends:        slices.Clone(s.friends),
		Notifications:  slices.Clone(s.notifications),
		PendingCount:   s.pendingCount,
		UnreadTotal:    s.unreadTotal,
	}
}

func (s *Service) notify(snap Snapshot) {
	s.mu.Lock()
	subs := slices.Clone(s.subscribers)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// LoadMatches is the page-load path for a league filter. A fresh cache
// hit short-circuits the network; otherwise any stale entry is painted
// immediately and the fetch proceeds. When filters change quickly, the
// latest request wins: a response for an abandoned filter is discarded.
func (s *Service) LoadMatches(ctx context.Context, leagueID string) error {
	s.mu.Lock()
	s.matchGen++
	gen := s.matchGen
	s.mu.Unlock()

	key := cache.Key("live", "matches", leagueID)

	if v, ok := s.cache.Get(key); ok {
		if matches, ok := v.([]domain.MatchSnapshot); ok {
			s.applyMatches(gen, leagueID, matches)
			return nil
		}
	}

	if v, ok := s.cache.GetStale(key); ok {
		if matches, ok := v.([]domain.MatchSnapshot); ok {
			s.logger.Debug().Str("league_id", leagueID).Msg("painting stale match list while fetching")
			s.applyMatches(gen, leagueID, matches)
		}
	}

	matches, err := s.backend.ListMatches(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("load matches: %w", err)
	}

	s.cache.Set(key, matches)
	s.applyMatches(gen, leagueID, matches)
	return nil
}

// applyMatches replaces the match list wholesale (REST semantics) unless
// a newer load has started since this one.
func (s *Service) applyMatches(gen int64, leagueID string, matches []domain.MatchSnapshot) {
	s.mu.Lock()
	if gen != s.matchGen {
		s.mu.Unlock()
		s.logger.Debug().Str("league_id", leagueID).Msg("discarding stale match response")
		return
	}
	s.leagueID = leagueID
	s.matches = slices.Clone(matches)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.observeLocks(matches)
	s.notify(snap)
}

func (s *Service) observeLocks(matches []domain.MatchSnapshot) {
	for _, m := range matches {
		s.coord.ObserveStatus(m.ID, m.Status)
		s.coord.ObserveLock(m.ID, m.PredictionLocked)
	}
}

// LoadInbox fetches conversations, friend requests and the friends list
// in parallel, painting cached copies first where available.
func (s *Service) LoadInbox(ctx context.Context) error {
	if v, ok := s.cache.GetStale(cache.Key("conversations")); ok {
		if convs, ok := v.([]domain.ConversationSummary); ok {
			s.mu.Lock()
			s.conversations = slices.Clone(convs)
			snap := s.snapshotLocked()
			s.mu.Unlock()
			s.notify(snap)
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	var (
		convs   []domain.ConversationSummary
		reqs    []domain.FriendRequest
		friends []domain.Friend
	)

	g.Go(func() error {
		var err error
		convs, err = s.backend.ListConversations(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		reqs, err = s.backend.ListFriendRequests(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		friends, err = s.backend.ListFriends(gCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("load inbox: %w", err)
	}

	s.cache.Set(cache.Key("conversations"), convs)

	pending := 0
	unread := 0
	for _, r := range reqs {
		if r.Direction == domain.DirectionIncoming {
			pending++
		}
	}
	for _, c := range convs {
		unread += c.UnreadCount
	}

	s.mu.Lock()
	s.conversations = convs
	s.friendRequests = reqs
	s.friends = friends
	s.pendingCount = pending
	s.unreadTotal = unread
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// HandleMatchEvent folds one match-feed push into the match list.
func (s *Service) HandleMatchEvent(ev realtime.Event) {
	switch e := ev.(type) {
	case realtime.MatchListEvent:
		s.mu.Lock()
		s.matches = reconcile.ApplyMatchList(s.matches, e.Matches)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.observeLocks(e.Matches)
		s.notify(snap)

	case realtime.MatchUpdateEvent:
		if e.MatchID == 0 {
			s.logger.Warn().Msg("dropping match update without id")
			return
		}
		s.mu.Lock()
		s.matches = reconcile.ApplyMatchUpdate(s.matches, e)
		snap := s.snapshotLocked()
		s.mu.Unlock()

		if e.Status != nil {
			s.coord.ObserveStatus(e.MatchID, *e.Status)
		}
		if e.PredictionLocked != nil {
			s.coord.ObserveLock(e.MatchID, *e.PredictionLocked)
		}
		s.notify(snap)

	default:
		s.logger.Debug().Str("event", fmt.Sprintf("%T", ev)).Msg("ignoring event on match feed")
	}
}

// HandleUserEvent folds one user-feed push into chat and friend state.
func (s *Service) HandleUserEvent(ev realtime.Event) {
	switch e := ev.(type) {
	case realtime.ChatMessageEvent:
		if e.FromUserID == "" {
			s.logger.Warn().Msg("dropping chat message without sender")
			return
		}
		s.mu.Lock()
		s.conversations = reconcile.TouchConversation(s.conversations, e)
		s.unreadTotal++
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)

	case realtime.ChatReadEvent:
		s.mu.Lock()
		for _, c := range s.conversations {
			if c.PeerUserID == e.PeerUserID {
				s.unreadTotal -= c.UnreadCount
				break
			}
		}
		if s.unreadTotal < 0 {
			s.unreadTotal = 0
		}
		s.conversations = reconcile.MarkConversationRead(s.conversations, e.PeerUserID)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)

	case realtime.ChatDeliveredEvent:
		s.logger.Debug().Str("message_id", e.MessageID).Msg("message delivered")

	case realtime.FriendRequestEvent:
		if e.Request.RequestID == "" {
			s.logger.Warn().Msg("dropping friend request event without id")
			return
		}
		s.mu.Lock()
		s.friendRequests, s.pendingCount = reconcile.ApplyFriendRequestEvent(s.friendRequests, s.pendingCount, e)
		if e.Action == realtime.FriendRequestAccepted {
			s.friends = reconcile.AddFriend(s.friends, domain.Friend{UserID: e.Request.UserID, Username: e.Request.Username})
		}
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)

	case realtime.FriendRemovedEvent:
		s.mu.Lock()
		s.friends = reconcile.RemoveFriend(s.friends, e.UserID)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)

	case realtime.NotificationEvent:
		s.mu.Lock()
		s.notifications = append([]domain.Notification{e.Notification}, s.notifications...)
		if len(s.notifications) > constants.NotificationBacklog {
			s.notifications = s.notifications[:constants.NotificationBacklog]
		}
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.notify(snap)

	default:
		s.logger.Debug().Str("event", fmt.Sprintf("%T", ev)).Msg("ignoring event on user feed")
	}
}
