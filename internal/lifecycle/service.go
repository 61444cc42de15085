package lifecycle

import (
	"log"
	"math"
	"time"

	"github.com/artport/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// SessionStore is the slice of the session repository the service mutates
// through. All writes are conditional on the expected prior status.
type SessionStore interface {
	MarkLive(id uuid.UUID, startedAt time.Time) (bool, error)
	Finish(id uuid.UUID, toStatus string, endedAt time.Time, durationMinutes int, fromStatuses []string) (bool, error)
	Cancel(id uuid.UUID) (bool, error)
}

// Ledger debits streaming minutes. Implementations must be idempotent per
// session.
type Ledger interface {
	DebitMinutes(sessionID, artistID uuid.UUID, minutes int) (bool, error)
}

// Locker serializes lifecycle mutations per session. May be absent (nil
// Service.locker) when Redis is unavailable; correctness then rests on the
// conditional updates alone.
type Locker interface {
	AcquireSessionLock(sessionID uuid.UUID) (bool, error)
	ReleaseSessionLock(sessionID uuid.UUID) error
}

// EndResult reports what an end-of-stream transition did.
type EndResult struct {
	DurationMinutes int
	Changed         bool
	Debited         bool
}

// Service is the single path through which stream sessions change state.
// The webhook receiver, the manual end handler, and the reconciliation
// handler all route their transitions through here, so duration stamping
// and minute debiting behave the same no matter which trigger fired.
type Service struct {
	sessions SessionStore
	ledger   Ledger
	locker   Locker
	clock    clockwork.Clock
}

func NewService(sessions SessionStore, ledger Ledger, locker Locker) *Service {
	return &Service{
		sessions: sessions,
		ledger:   ledger,
		locker:   locker,
		clock:    clockwork.NewRealClock(),
	}
}

// NewServiceWithClock is used by tests to control time.
func NewServiceWithClock(sessions SessionStore, ledger Ledger, locker Locker, clock clockwork.Clock) *Service {
	s := NewService(sessions, ledger, locker)
	s.clock = clock
	return s
}

// Activate transitions a session into 'live', stamping started_at on first
// activation only. Re-delivered activation events are no-ops: a session
// already live keeps its original started_at.
func (s *Service) Activate(session *models.StreamSession) (bool, error) {
	if session.Status == models.StatusLive {
		return false, nil
	}
	return s.sessions.MarkLive(session.ID, s.clock.Now())
}

// End transitions a session out of 'live'. With terminal=true the session
// becomes 'ended' and, for platform-managed sessions, the artist's minute
// balance is debited. With terminal=false the session is parked as
// 'waiting' (recoverable, no debit).
//
// Duration is ceil((now - started_at) / 60s), or the already-stored value
// when a previous transition computed one. The debit is attempted on every
// terminal call but the ledger flips the per-session debited flag in the
// same transaction as the balance update, so it lands at most once.
func (s *Service) End(session *models.StreamSession, terminal bool) (*EndResult, error) {
	if s.locker != nil {
		ok, err := s.locker.AcquireSessionLock(session.ID)
		if err != nil {
			log.Printf("Warning: session lock unavailable for %s: %v", session.ID, err)
		} else if ok {
			defer s.locker.ReleaseSessionLock(session.ID)
		}
		// When the lock is held elsewhere we still proceed: the
		// conditional update below keeps the loser harmless.
	}

	now := s.clock.Now()
	duration := s.durationMinutes(session, now)

	toStatus := models.StatusWaiting
	from := []string{models.StatusLive}
	if terminal {
		toStatus = models.StatusEnded
		from = []string{models.StatusLive, models.StatusWaiting}
	}

	changed, err := s.sessions.Finish(session.ID, toStatus, now, duration, from)
	if err != nil {
		return nil, err
	}

	result := &EndResult{DurationMinutes: duration, Changed: changed}

	// Debit when this call performed the terminal transition, or when a
	// previous one did but may have crashed before its debit landed. A
	// failed CAS on a session that never went live must not touch the
	// ledger.
	attemptDebit := terminal && session.Metered() &&
		(changed || session.Status == models.StatusEnded)
	if attemptDebit {
		debited, err := s.ledger.DebitMinutes(session.ID, session.ArtistID, duration)
		if err != nil {
			return nil, err
		}
		result.Debited = debited
	}
	return result, nil
}

// Cancel transitions a session into 'cancelled'. Returns false when the
// session was past the point of cancellation.
func (s *Service) Cancel(session *models.StreamSession) (bool, error) {
	return s.sessions.Cancel(session.ID)
}

func (s *Service) durationMinutes(session *models.StreamSession, now time.Time) int {
	if session.DurationMinutes != nil {
		return *session.DurationMinutes
	}
	if session.StartedAt == nil {
		return 0
	}
	elapsed := now.Sub(*session.StartedAt)
	if elapsed < 0 {
		return 0
	}
	return int(math.Ceil(elapsed.Seconds() / 60))
}
