// Package matchmaking pairs players for head-to-head rounds and holds their
// choices until both arrive or the round times out. State lives in memory:
// a round is a rendezvous between two request paths, not durable data.
package matchmaking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmetrik/gamehall/internal/games/dilemma"
)

type Status string

const (
	StatusAwaitingSecond Status = "awaiting_second"
	StatusBothReserved   Status = "both_reserved"
	StatusResolved       Status = "resolved"
	StatusExpired        Status = "expired"
)

var (
	ErrRoundNotFound          = errors.New("round not found")
	ErrRoundExpired           = errors.New("round expired")
	ErrRoundResolved          = errors.New("round already resolved")
	ErrNotParticipant         = errors.New("not a participant of this round")
	ErrChoiceAlreadySubmitted = errors.New("choice already submitted")
	ErrChoicesPending         = errors.New("waiting for the other participant")
	ErrPoolClosed             = errors.New("matchmaking pool closed")
)

type Config struct {
	// MatchWait bounds how long a lone participant holds a round open.
	MatchWait time.Duration
	// ChoiceWait bounds how long a matched round waits for both choices.
	ChoiceWait time.Duration
	// SweepInterval is how often the janitor expires overdue rounds.
	SweepInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		MatchWait:     60 * time.Second,
		ChoiceWait:    60 * time.Second,
		SweepInterval: 5 * time.Second,
	}
}

type round struct {
	id           uuid.UUID
	participants [2]int64
	filled       int
	choices      [2]*dilemma.Choice
	status       Status
	createdAt    time.Time
	matchedAt    time.Time

	// matched is closed when the second participant arrives, releasing any
	// caller blocked in WaitMatched.
	matched chan struct{}
}

func (r *round) deadline(cfg Config) time.Time {
	if r.status == StatusAwaitingSecond {
		return r.createdAt.Add(cfg.MatchWait)
	}

	return r.matchedAt.Add(cfg.ChoiceWait)
}

func (r *round) slotOf(account int64) int {
	for i := 0; i < r.filled; i++ {
		if r.participants[i] == account {
			return i
		}
	}

	return -1
}

// Pool is the in-memory matchmaking state. One mutex guards everything: the
// per-round work inside it is a few field writes, never I/O.
type Pool struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	waiting *round
	rounds  map[uuid.UUID]*round
	closed  bool

	done    chan struct{}
	janitor sync.WaitGroup
}

type JoinResult struct {
	RoundID  uuid.UUID
	Status   Status
	Opponent *int64
}

type RoundView struct {
	RoundID      uuid.UUID
	Status       Status
	Participants []int64
	Submitted    []int64
}

// Resolution is handed to exactly one caller, the second choice submitter,
// which settles it through the ledger.
type Resolution struct {
	RoundID  uuid.UUID
	Accounts [2]int64
	Choices  [2]dilemma.Choice
}

type SubmitResult struct {
	Status     Status
	Resolution *Resolution
}

func NewPool(cfg Config) *Pool {
	p := &Pool{
		cfg:    cfg,
		now:    time.Now,
		rounds: make(map[uuid.UUID]*round),
		done:   make(chan struct{}),
	}

	p.janitor.Add(1)
	go p.sweepLoop()

	return p
}

// Stop expires every pending round and stops the janitor.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}

	p.closed = true

	for _, r := range p.rounds {
		if r.status == StatusAwaitingSecond || r.status == StatusBothReserved {
			p.expireLocked(r)
		}
	}
	p.mu.Unlock()

	close(p.done)
	p.janitor.Wait()
}

// Join reserves a slot. A waiting round gets its second participant and both
// callers learn the round is matched; otherwise a new round opens. Joining
// again while already waiting returns the same round.
func (p *Pool) Join(account int64) (JoinResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return JoinResult{}, ErrPoolClosed
	}

	if w := p.waiting; w != nil {
		if w.participants[0] == account {
			return JoinResult{RoundID: w.id, Status: w.status}, nil
		}

		w.participants[1] = account
		w.filled = 2
		w.status = StatusBothReserved
		w.matchedAt = p.now()
		close(w.matched)
		p.waiting = nil

		return JoinResult{RoundID: w.id, Status: w.status, Opponent: &w.participants[0]}, nil
	}

	r := &round{
		id:        uuid.New(),
		status:    StatusAwaitingSecond,
		createdAt: p.now(),
		matched:   make(chan struct{}),
	}
	r.participants[0] = account
	r.filled = 1

	p.rounds[r.id] = r
	p.waiting = r

	return JoinResult{RoundID: r.id, Status: r.status}, nil
}

// WaitMatched blocks until the round gains its second participant, expires,
// the caller gives up, or the timeout passes. It backs long-poll callers;
// plain pollers can use View instead.
func (p *Pool) WaitMatched(ctx context.Context, roundID uuid.UUID, timeout time.Duration) (RoundView, error) {
	p.mu.Lock()
	r, ok := p.rounds[roundID]
	if !ok {
		p.mu.Unlock()
		return RoundView{}, ErrRoundNotFound
	}
	ch := r.matched
	p.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
	case <-p.done:
	case <-ctx.Done():
	case <-timer.C:
	}

	return p.View(roundID)
}

// SubmitChoice records one participant's choice exactly once. The submission
// completing the pair resolves the round and carries the Resolution out.
func (p *Pool) SubmitChoice(roundID uuid.UUID, account int64, choice dilemma.Choice) (SubmitResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.rounds[roundID]
	if !ok {
		return SubmitResult{}, ErrRoundNotFound
	}

	if overdue := p.expireIfOverdueLocked(r); overdue {
		return SubmitResult{}, ErrRoundExpired
	}

	switch r.status {
	case StatusExpired:
		return SubmitResult{}, ErrRoundExpired
	case StatusResolved:
		return SubmitResult{}, ErrRoundResolved
	case StatusAwaitingSecond:
		if r.slotOf(account) == -1 {
			return SubmitResult{}, ErrNotParticipant
		}
		return SubmitResult{}, ErrChoicesPending
	}

	slot := r.slotOf(account)
	if slot == -1 {
		return SubmitResult{}, ErrNotParticipant
	}

	if r.choices[slot] != nil {
		return SubmitResult{}, ErrChoiceAlreadySubmitted
	}

	r.choices[slot] = &choice

	other := 1 - slot
	if r.choices[other] == nil {
		return SubmitResult{Status: r.status}, nil
	}

	r.status = StatusResolved
	delete(p.rounds, r.id)

	return SubmitResult{
		Status: StatusResolved,
		Resolution: &Resolution{
			RoundID:  r.id,
			Accounts: r.participants,
			Choices:  [2]dilemma.Choice{*r.choices[0], *r.choices[1]},
		},
	}, nil
}

// View reports a round's current state, expiring it first if overdue.
func (p *Pool) View(roundID uuid.UUID) (RoundView, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.rounds[roundID]
	if !ok {
		return RoundView{}, ErrRoundNotFound
	}

	p.expireIfOverdueLocked(r)

	view := RoundView{RoundID: r.id, Status: r.status}
	for i := 0; i < r.filled; i++ {
		view.Participants = append(view.Participants, r.participants[i])
		if r.choices[i] != nil {
			view.Submitted = append(view.Submitted, r.participants[i])
		}
	}

	return view, nil
}

func (p *Pool) sweepLoop() {
	defer p.janitor.Done()

	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

// expiredRetention keeps expired rounds visible to pollers for a while
// before the sweeper drops them.
const expiredRetention = 10 * time.Minute

func (p *Pool) sweep() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, r := range p.rounds {
		p.expireIfOverdueLocked(r)

		if r.status == StatusExpired && p.now().After(r.deadline(p.cfg).Add(expiredRetention)) {
			delete(p.rounds, id)
		}
	}
}

func (p *Pool) expireIfOverdueLocked(r *round) bool {
	if r.status != StatusAwaitingSecond && r.status != StatusBothReserved {
		return false
	}

	if p.now().Before(r.deadline(p.cfg)) {
		return false
	}

	p.expireLocked(r)

	return true
}

// expireLocked voids an overdue round. Nothing has been wagered at this
// point, so a no-show costs nothing to refund: the round resolves as a
// no-contest with no ledger activity.
func (p *Pool) expireLocked(r *round) {
	r.status = StatusExpired

	select {
	case <-r.matched:
	default:
		close(r.matched)
	}

	if p.waiting == r {
		p.waiting = nil
	}

	slog.Info("matchmaking round expired",
		"round_id", r.id,
		"participants", r.filled,
	)
}
