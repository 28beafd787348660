package server

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/moyufeng/doudizhu/internal/card"
	"github.com/moyufeng/doudizhu/internal/protocol"
	"github.com/moyufeng/doudizhu/internal/rules"
)

const (
	cardsPerSeat = 17
	// winBannerDelay separates the victory banner from the round reset so
	// clients can show it.
	winBannerDelay = 5 * time.Second
)

// errRoundAborted reports that a seat was lost mid-round and the round ended
// for the survivors.
var errRoundAborted = errors.New("round aborted")

// inputError is a player mistake: it bounces back to the offending seat
// only, who stays on turn.
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

// game drives one round: bidding, landlord reveal, the turn loop, and win
// detection. It runs entirely on the room's game goroutine against a fixed
// snapshot of three seats.
type game struct {
	room   *Room
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand
	seats  []*Seat

	// display names annotated with bid, then role, shown in turn prompts
	nameList []string

	landlord int
	turn     int
	lastSeat int
	last     *rules.Hand
}

func newGame(r *Room, seats []*Seat) *game {
	return &game{
		room:   r,
		logger: r.logger.WithPrefix("game"),
		clock:  r.clock,
		rng:    r.rng,
		seats:  seats,
	}
}

// play runs the round to completion. It returns nil on a normal finish,
// errRoundAborted when a seat was lost, and any other error on a fatal
// engine failure.
func (g *game) play() error {
	names := seatNames(g.seats)
	for i, st := range g.seats {
		if err := g.send(st, &protocol.Update{
			TopMessage: "开始游戏!",
			NameList:   names,
			MyIndex:    protocol.Int(i),
		}); err != nil {
			return err
		}
	}

	kitty, err := g.bidding()
	if err != nil {
		return err
	}
	if err := g.revealLandlord(kitty); err != nil {
		return err
	}
	return g.turnLoop()
}

// bidding deals and collects bids until someone takes the round, redealing
// whenever all three seats pass. It returns the kitty of the final deal.
func (g *game) bidding() ([]card.Card, error) {
	for {
		deck := card.NewDeck(g.rng)
		deck.Shuffle()
		hands, err := deck.Deal(maxSeats, cardsPerSeat)
		if err != nil {
			return nil, err
		}
		for i, st := range g.seats {
			st.cards = st.cards[:0]
			st.addCards(hands[i])
		}
		for _, st := range g.seats {
			if err := g.send(st, &protocol.Update{MyCardList: protocol.List(st.cardNames())}); err != nil {
				return nil, err
			}
		}

		nameList := seatNames(g.seats)
		maxMark, maxIdx := 0, 0
		for i := 0; i < maxSeats; i++ {
			st := g.seats[i]
			mark, err := g.collectBid(i, st, nameList)
			if err != nil {
				return nil, err
			}
			if err := g.broadcast(&protocol.Update{
				TopMessage: fmt.Sprintf("【%s】叫 %d 分", st.Name(), mark),
				NameList:   nameList,
				State:      protocol.State(protocol.StateWait),
			}); err != nil {
				return nil, err
			}
			if mark > maxMark {
				maxMark, maxIdx = mark, i
				if mark == 3 {
					break
				}
			}
		}

		if maxMark != 0 {
			g.landlord = maxIdx
			g.turn = maxIdx
			g.lastSeat = maxIdx
			g.logger.Info("bidding done", "landlord", g.seats[maxIdx].Name(), "mark", maxMark)
			return deck.Kitty(), nil
		}
		g.logger.Info("all seats passed, redealing")
	}
}

// collectBid prompts one seat until it answers with a digit in 0..3 and
// annotates its nameList entry with the bid.
func (g *game) collectBid(idx int, st *Seat, nameList []string) (int, error) {
	for {
		if err := g.broadcastExcept(idx, &protocol.Update{
			TopMessage: fmt.Sprintf("等待【%s】叫分", st.Name()),
		}); err != nil {
			return 0, err
		}
		if err := g.send(st, &protocol.Update{
			TopMessage: "请叫分（0~3）",
			State:      protocol.State(protocol.StateMarking),
		}); err != nil {
			return 0, err
		}

		cmd, err := g.read(st)
		if err != nil {
			return 0, err
		}
		if !isNumeric(cmd) {
			if err := g.send(st, &protocol.Update{
				TopMessage: "格式错误，请输入纯数字",
				State:      protocol.State(protocol.StateMarking),
			}); err != nil {
				return 0, err
			}
			continue
		}
		mark, _ := strconv.Atoi(cmd)
		if mark < 0 || mark > 3 {
			if err := g.send(st, &protocol.Update{
				TopMessage: "叫分范围有误，请重新叫分",
				State:      protocol.State(protocol.StateMarking),
			}); err != nil {
				return 0, err
			}
			continue
		}
		nameList[idx] = fmt.Sprintf("%s:%d分", st.Name(), mark)
		return mark, nil
	}
}

// revealLandlord hands the kitty to the winning bidder and publishes roles
// and the now-public kitty.
func (g *game) revealLandlord(kitty []card.Card) error {
	g.nameList = make([]string, maxSeats)
	for i, st := range g.seats {
		role := "农民"
		if i == g.landlord {
			role = "地主"
		}
		g.nameList[i] = st.Name() + ":" + role
	}

	lord := g.seats[g.landlord]
	lord.addCards(kitty)
	if err := g.send(lord, &protocol.Update{MyCardList: protocol.List(lord.cardNames())}); err != nil {
		return err
	}
	return g.broadcast(&protocol.Update{
		TopMessage:     "地主是:" + lord.Name(),
		NameList:       g.nameList,
		RemainCardList: card.Names(kitty),
		State:          protocol.State(protocol.StateWait),
	})
}

// turnLoop rotates turns from the landlord until a hand empties. A seat in
// free play (nobody beat its last play) must lay cards; followers may pass.
func (g *game) turnLoop() error {
	for {
		st := g.seats[g.turn]

		counts := make([]int, maxSeats)
		for i, s := range g.seats {
			counts[i] = len(s.cards)
		}
		if err := g.broadcast(&protocol.Update{
			CardCountList: counts,
			State:         protocol.State(protocol.StateWait),
		}); err != nil {
			return err
		}

		free := g.turn == g.lastSeat
		if free {
			g.last = nil
			if err := g.broadcast(&protocol.Update{
				TopMessage:   fmt.Sprintf("轮到【%s】出任意牌了", g.nameList[g.turn]),
				LastCardList: protocol.List(nil),
			}); err != nil {
				return err
			}
			if err := g.send(st, &protocol.Update{State: protocol.State(protocol.StateFree)}); err != nil {
				return err
			}
		} else {
			if err := g.broadcast(&protocol.Update{
				TopMessage: fmt.Sprintf("轮到【%s】出牌了", g.nameList[g.turn]),
			}); err != nil {
				return err
			}
			if err := g.send(st, &protocol.Update{State: protocol.State(protocol.StatePlaying)}); err != nil {
				return err
			}
		}

		cmd, err := g.read(st)
		if err != nil {
			return err
		}
		cmd = strings.TrimSpace(cmd)

		if protocol.IsPass(cmd) {
			if free {
				if err := g.send(st, &protocol.Update{
					TopMessage: "本次你为任意牌，必须出牌",
					State:      protocol.State(protocol.StateFree),
				}); err != nil {
					return err
				}
				continue
			}
			if err := g.broadcast(&protocol.Update{
				TopMessage: fmt.Sprintf("【%s】选择了不出", g.nameList[g.turn]),
				State:      protocol.State(protocol.StateWait),
			}); err != nil {
				return err
			}
		} else {
			if err := g.playCards(st, cmd, free); err != nil {
				var ie *inputError
				if errors.As(err, &ie) {
					if err := g.send(st, &protocol.Update{TopMessage: ie.msg}); err != nil {
						return err
					}
					continue
				}
				return err
			}
		}

		g.turn = (g.turn + 1) % maxSeats

		for i, s := range g.seats {
			if len(s.cards) == 0 {
				return g.finish(i)
			}
		}
	}
}

// playCards validates and applies one play. Rule violations come back as
// *inputError; transport failures abort the round.
func (g *game) playCards(st *Seat, cmd string, free bool) error {
	cards, err := card.ParseAll(protocol.PlayTokens(cmd))
	if err != nil {
		return &inputError{msg: err.Error()}
	}
	hand, err := rules.Classify(cards)
	if err != nil {
		return &inputError{msg: err.Error()}
	}
	if !rules.Beats(hand, g.last, free) {
		return &inputError{msg: rules.ErrInvalidHand.Error()}
	}
	if err := st.removeCards(hand.Cards); err != nil {
		return &inputError{msg: err.Error()}
	}

	if err := g.send(st, &protocol.Update{MyCardList: protocol.List(st.cardNames())}); err != nil {
		return err
	}
	if err := g.broadcast(&protocol.Update{
		LastCardPlayerIndex: protocol.Int(g.turn),
		LastCardList:        protocol.List(hand.Names()),
		LastCardType:        hand.Type.String(),
		State:               protocol.State(protocol.StateWait),
	}); err != nil {
		return err
	}

	g.logger.Debug("play accepted",
		"player", st.Name(), "type", hand.Type.String(), "power", hand.Power, "size", hand.Size())
	g.last = hand
	g.lastSeat = g.turn
	return nil
}

// finish announces the winner, waits out the banner, and resets every seat.
func (g *game) finish(winner int) error {
	g.logger.Info("round won", "player", g.seats[winner].Name())
	if err := g.broadcast(&protocol.Update{
		TopMessage: fmt.Sprintf("【%s】胜利！5秒后结束本局游戏", g.nameList[winner]),
		State:      protocol.State(protocol.StateWait),
	}); err != nil {
		return err
	}

	timer := g.clock.NewTimer(winBannerDelay, "win-banner")
	defer timer.Stop()
	<-timer.C

	for _, st := range g.seats {
		_ = st.session.SendStop()
	}
	return nil
}

// send delivers an update to one seat; on failure the seat is detached and
// the round aborts.
func (g *game) send(st *Seat, u *protocol.Update) error {
	if err := st.session.SendUpdate(u); err != nil {
		return g.lost(st, err)
	}
	return nil
}

// read blocks for one command from a seat, detaching it on a dead socket.
func (g *game) read(st *Seat) (string, error) {
	cmd, err := st.session.ReadCommand()
	if err != nil {
		return "", g.lost(st, err)
	}
	return cmd, nil
}

func (g *game) broadcast(u *protocol.Update) error {
	return g.broadcastExcept(-1, u)
}

func (g *game) broadcastExcept(skip int, u *protocol.Update) error {
	for i, st := range g.seats {
		if i == skip {
			continue
		}
		if err := g.send(st, u); err != nil {
			return err
		}
	}
	return nil
}

func (g *game) lost(st *Seat, err error) error {
	g.logger.Warn("seat lost mid-round", "player", st.Name(), "err", err)
	g.room.remove(st.session)
	return errRoundAborted
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
