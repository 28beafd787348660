package server

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/moyufeng/doudizhu/internal/card"
	"github.com/moyufeng/doudizhu/internal/protocol"
)

// maxSeats is the fixed table size of the game.
const maxSeats = 3

// ErrRoomFull rejects a fourth joiner.
var ErrRoomFull = errors.New("每桌最多3位玩家，玩家已经满了")

// Seat is one occupied position: the attached session plus the hand.
type Seat struct {
	session *Session
	cards   []card.Card
}

// Name returns the player's display name.
func (st *Seat) Name() string { return st.session.Player() }

func (st *Seat) addCards(cs []card.Card) {
	st.cards = append(st.cards, cs...)
	card.Sort(st.cards)
}

// removeCards takes the played cards out of the hand, verifying on a copy
// first so a rejected play leaves the hand untouched.
func (st *Seat) removeCards(cs []card.Card) error {
	rest := slices.Clone(st.cards)
	for _, c := range cs {
		i := slices.Index(rest, c)
		if i < 0 {
			return fmt.Errorf("你没有足够的【%s】", c.Name())
		}
		rest = slices.Delete(rest, i, i+1)
	}
	st.cards = rest
	return nil
}

func (st *Seat) cardNames() []string {
	return card.Names(st.cards)
}

// Room groups up to three seats under one name and runs their rounds. All
// round mutations happen on the room's single game goroutine; the seat list
// itself is guarded by mu because joins arrive from the accept loop.
type Room struct {
	name   string
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand

	mu      sync.Mutex
	seats   []*Seat
	playing bool
}

// NewRoom creates an empty room. The rng is owned by the room's game
// goroutine exclusively.
func NewRoom(name string, logger *log.Logger, clock quartz.Clock, rng *rand.Rand) *Room {
	return &Room{
		name:   name,
		logger: logger.WithPrefix("room").With("room", name),
		clock:  clock,
		rng:    rng,
	}
}

// Name returns the room name.
func (r *Room) Name() string { return r.name }

// Seats returns the current seat count.
func (r *Room) Seats() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seats)
}

// Join attaches a session to the next free seat and announces it. The third
// join starts the round loop. A full room answers with a popup and
// ErrRoomFull; the caller closes the session.
func (r *Room) Join(sess *Session) error {
	r.mu.Lock()
	if len(r.seats) >= maxSeats {
		r.mu.Unlock()
		_ = sess.SendInfo(ErrRoomFull.Error())
		return ErrRoomFull
	}
	r.seats = append(r.seats, &Seat{session: sess})
	seats := slices.Clone(r.seats)
	names := seatNames(seats)
	start := len(seats) == maxSeats && !r.playing
	if start {
		r.playing = true
	}
	r.mu.Unlock()

	// Detach the seat as soon as the session dies for any reason, including
	// a heartbeat write failure while nobody is reading from it. remove is
	// idempotent, so overlap with the game's own error path is harmless.
	go func() {
		<-sess.Done()
		r.remove(sess)
	}()

	r.logger.Info("player joined", "player", sess.Player(), "seats", len(seats))
	for i, st := range seats {
		_ = st.session.SendUpdate(&protocol.Update{
			TopMessage: fmt.Sprintf("【%s】加入了房间", sess.Player()),
			NameList:   names,
			MyIndex:    protocol.Int(i),
		})
	}

	if start {
		go r.runRounds()
	}
	return nil
}

// remove detaches a session's seat, tells the survivors, and aborts the
// round in progress on their side.
func (r *Room) remove(sess *Session) {
	r.mu.Lock()
	idx := slices.IndexFunc(r.seats, func(st *Seat) bool { return st.session == sess })
	if idx < 0 {
		r.mu.Unlock()
		return
	}
	r.seats = slices.Delete(r.seats, idx, idx+1)
	seats := slices.Clone(r.seats)
	names := seatNames(seats)
	r.mu.Unlock()

	sess.Close()
	r.logger.Info("player left", "player", sess.Player(), "seats", len(seats))

	for i, st := range seats {
		_ = st.session.SendUpdate(&protocol.Update{
			TopMessage: fmt.Sprintf("【%s】退出了房间", sess.Player()),
			NameList:   names,
			MyIndex:    protocol.Int(i),
		})
	}
	for _, st := range seats {
		_ = st.session.SendStop()
	}
}

// runRounds plays rounds back to back while the room stays full. It is the
// only goroutine touching hands and the rng.
func (r *Room) runRounds() {
	r.logger.Info("room full, starting rounds")
	for {
		r.mu.Lock()
		seats := slices.Clone(r.seats)
		if len(seats) != maxSeats {
			r.playing = false
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		g := newGame(r, seats)
		err := g.play()
		switch {
		case err == nil:
		case errors.Is(err, errRoundAborted):
			// Seat already detached; the next iteration notices the
			// short table and parks the room.
		default:
			r.logger.Error("round failed", "err", err)
			for _, st := range seats {
				_ = st.session.SendStop()
			}
			r.mu.Lock()
			r.playing = false
			r.mu.Unlock()
			return
		}
	}
}

func seatNames(seats []*Seat) []string {
	names := make([]string, len(seats))
	for i, st := range seats {
		names[i] = st.Name()
	}
	return names
}
