// Package predict owns the optimistic 1/X/2 selection state: a user may
// pick before authenticating, the pick is parked until login completes,
// and a later server confirmation or lock push is reconciled against the
// local edit without ever losing the user's input.
package predict

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"footysync/internal/domain"
	"footysync/internal/session"
)

var (
	// ErrAuthRequired means the mutation was parked; the caller should
	// send the user to login and call OnAuthenticated afterwards.
	ErrAuthRequired = errors.New("sign in to save this prediction")

	// ErrLocked is a logical conflict: the match no longer accepts
	// predictions.
	ErrLocked = errors.New("predictions are locked for this match")
)

// Backend is the slice of the REST client the coordinator needs.
type Backend interface {
	SavePrediction(ctx context.Context, matchID int64, choice domain.Choice) error
	DeletePrediction(ctx context.Context, matchID int64) error
	Authenticated() bool
}

type Phase int

const (
	PhaseUnset Phase = iota
	PhaseLocalPending
	PhaseSaving
	PhaseSaved
)

func (p Phase) String() string {
	switch p {
	case PhaseUnset:
		return "unset"
	case PhaseLocalPending:
		return "local_pending"
	case PhaseSaving:
		return "saving"
	case PhaseSaved:
		return "saved"
	default:
		return "unknown"
	}
}

// Selection is a read-only snapshot of one match's prediction state.
type Selection struct {
	Phase    Phase
	Pending  domain.Choice
	Saved    domain.Choice
	HasSaved bool
	Locked   bool
}

// Effective is the choice the UI should highlight: the local pending one
// while an edit is in flight, otherwise the server-confirmed one.
func (s Selection) Effective() (domain.Choice, bool) {
	switch s.Phase {
	case PhaseLocalPending, PhaseSaving:
		return s.Pending, true
	case PhaseSaved:
		if s.HasSaved {
			return s.Saved, true
		}
	}
	return "", false
}

type selection struct {
	phase    Phase
	pending  domain.Choice
	saved    domain.Choice
	hasSaved bool
	locked   bool
}

func (s *selection) snapshot() Selection {
	return Selection{Phase: s.phase, Pending: s.pending, Saved: s.saved, HasSaved: s.hasSaved, Locked: s.locked}
}

func (s *selection) effective() (domain.Choice, bool) {
	return s.snapshot().Effective()
}

type Coordinator struct {
	backend Backend
	store   *session.Store
	logger  zerolog.Logger

	mu         sync.Mutex
	selections map[int64]*selection
}

func NewCoordinator(backend Backend, store *session.Store, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		backend:    backend,
		store:      store,
		logger:     logger,
		selections: make(map[int64]*selection),
	}
}

func (c *Coordinator) selectionLocked(matchID int64) *selection {
	sel, ok := c.selections[matchID]
	if !ok {
		sel = &selection{}
		c.selections[matchID] = sel
	}
	return sel
}

// Selection returns the current snapshot for a match.
func (c *Coordinator) Selection(matchID int64) Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectionLocked(matchID).snapshot()
}

// Tap registers a user pick. Tapping the currently-effective choice
// toggles it off; tapping the server-saved choice while a different pick
// is pending abandons the pending edit; any other pick becomes the local
// pending one. Taps on a locked match or during an in-flight save are
// no-ops.
func (c *Coordinator) Tap(matchID int64, choice domain.Choice) {
	if !choice.Valid() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sel := c.selectionLocked(matchID)
	if sel.locked || sel.phase == PhaseSaving {
		return
	}

	effective, ok := sel.effective()
	switch {
	case ok && choice == effective:
		sel.pending = ""
		sel.phase = PhaseUnset
	case sel.hasSaved && choice == sel.saved:
		sel.pending = ""
		sel.phase = PhaseSaved
	default:
		sel.pending = choice
		sel.phase = PhaseLocalPending
	}
}

// Submit persists the current local state. Unauthenticated submissions
// are parked in the session store and ErrAuthRequired is returned. A
// failed save keeps the local selection intact so no input is lost.
func (c *Coordinator) Submit(ctx context.Context, matchID int64) error {
	c.mu.Lock()
	sel := c.selectionLocked(matchID)

	if sel.locked {
		c.mu.Unlock()
		return ErrLocked
	}

	switch sel.phase {
	case PhaseLocalPending:
		choice := sel.pending
		if !c.backend.Authenticated() {
			c.mu.Unlock()
			if err := c.store.ParkPrediction(ctx, matchID, choice); err != nil {
				return err
			}
			return ErrAuthRequired
		}
		sel.phase = PhaseSaving
		c.mu.Unlock()

		if err := c.backend.SavePrediction(ctx, matchID, choice); err != nil {
			c.mu.Lock()
			if sel.phase == PhaseSaving {
				sel.phase = PhaseLocalPending
			}
			c.mu.Unlock()
			return err
		}

		c.mu.Lock()
		if sel.phase == PhaseSaving {
			sel.saved = choice
			sel.hasSaved = true
			sel.pending = ""
			sel.phase = PhaseSaved
		}
		c.mu.Unlock()
		return nil

	case PhaseUnset:
		// An effective unset over a saved value means the user toggled
		// their prediction off; submitting removes it server-side.
		if !sel.hasSaved {
			c.mu.Unlock()
			return nil
		}
		if !c.backend.Authenticated() {
			c.mu.Unlock()
			return ErrAuthRequired
		}
		c.mu.Unlock()

		if err := c.backend.DeletePrediction(ctx, matchID); err != nil {
			return err
		}

		c.mu.Lock()
		sel.hasSaved = false
		sel.saved = ""
		c.mu.Unlock()
		return nil

	default:
		// Saved or already saving: nothing to submit.
		c.mu.Unlock()
		return nil
	}
}

// Clear abandons any in-progress local edit; the server-confirmed value,
// if one exists, becomes effective again.
func (c *Coordinator) Clear(matchID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// An in-flight save finds the phase changed and leaves it alone.
	sel := c.selectionLocked(matchID)
	sel.pending = ""
	if sel.hasSaved {
		sel.phase = PhaseSaved
	} else {
		sel.phase = PhaseUnset
	}
}

// ObserveStatus freezes the selection once the match goes live or
// finishes; whatever state existed at that instant stays visible
// read-only. The freeze is never lifted.
func (c *Coordinator) ObserveStatus(matchID int64, status domain.MatchStatus) {
	if status != domain.StatusLive && status != domain.StatusFinished {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectionLocked(matchID).locked = true
}

// ObserveLock applies an explicit lock push.
func (c *Coordinator) ObserveLock(matchID int64, locked bool) {
	if !locked {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectionLocked(matchID).locked = true
}

// ConfirmSaved reconciles a server-pushed confirmation. A pending local
// edit survives; an in-flight save is settled with the pushed value.
func (c *Coordinator) ConfirmSaved(matchID int64, choice domain.Choice) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sel := c.selectionLocked(matchID)
	// An Unset that already had a saved value is an intentional
	// toggle-off; the push must not resurrect it. A fresh Unset is just
	// "no local state yet" and adopts the confirmed value.
	adopt := sel.phase == PhaseSaving || sel.phase == PhaseSaved ||
		(sel.phase == PhaseUnset && !sel.hasSaved)
	sel.saved = choice
	sel.hasSaved = true
	if adopt {
		sel.pending = ""
		sel.phase = PhaseSaved
	}
}

// OnAuthenticated replays the parked mutation exactly once. A parked
// pick whose match has locked in the meantime is dropped and surfaced as
// ErrLocked.
func (c *Coordinator) OnAuthenticated(ctx context.Context) error {
	parked, err := c.store.TakeParkedPrediction(ctx)
	if err != nil {
		return err
	}
	if parked == nil {
		return nil
	}

	c.logger.Info().
		Int64("match_id", parked.MatchID).
		Str("choice", string(parked.Choice)).
		Msg("replaying parked prediction")

	c.mu.Lock()
	sel := c.selectionLocked(parked.MatchID)
	if sel.locked {
		c.mu.Unlock()
		c.logger.Warn().Int64("match_id", parked.MatchID).Msg("parked prediction dropped, match locked")
		return ErrLocked
	}
	sel.pending = parked.Choice
	sel.phase = PhaseLocalPending
	c.mu.Unlock()

	return c.Submit(ctx, parked.MatchID)
}
