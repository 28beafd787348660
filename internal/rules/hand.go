// Package rules implements the Dou Dizhu hand classifier and comparator:
// which of the 15 legal shapes a set of cards forms, what its power is, and
// when one hand beats another.
package rules

import (
	"errors"
	"sort"

	"github.com/moyufeng/doudizhu/internal/card"
)

// HandType tags the 15 legal hand shapes.
type HandType int

const (
	Single HandType = iota
	Pair
	Triple
	TripleDouble
	TripleSingle
	TriplePair
	FourSingle
	FourTwo
	FourTwoPair
	Straight
	StraightPair
	Airplane
	AirplaneWithPair
	Bomb
	Rocket
)

var handTypeNames = [...]string{
	"一张", "一对", "三张", "双三张",
	"三带一", "三带二", "四带一", "四带二", "四带两对",
	"顺子", "连对", "飞机", "飞机带对子", "炸弹", "王炸",
}

// String returns the wire name of the type.
func (t HandType) String() string {
	if t < 0 || int(t) >= len(handTypeNames) {
		return "?"
	}
	return handTypeNames[t]
}

// Ordinal returns the 1-based enum position used by the client's two-digit
// type annotation.
func (t HandType) Ordinal() int { return int(t) + 1 }

var (
	// ErrEmptyHand is returned for a play with no cards.
	ErrEmptyHand = errors.New("出牌为空")
	// ErrInvalidHand is returned when no shape rule matches.
	ErrInvalidHand = errors.New("出牌不符合规则")
)

// Hand is a classified play. A Hand only exists for a legal shape.
type Hand struct {
	Type  HandType
	Power int
	Cards []card.Card // sorted ascending by (power, suit)
}

// Size returns the number of cards laid down.
func (h *Hand) Size() int { return len(h.Cards) }

// Names renders the play in wire form.
func (h *Hand) Names() []string { return card.Names(h.Cards) }

// Classify decides which of the 15 shapes the cards form and its power. The
// rules are tested in a fixed order so overlapping shapes resolve the same
// way every time.
func Classify(cards []card.Card) (*Hand, error) {
	if len(cards) == 0 {
		return nil, ErrEmptyHand
	}

	sorted := make([]card.Card, len(cards))
	copy(sorted, cards)
	card.Sort(sorted)

	if len(sorted) == 1 {
		return &Hand{Type: Single, Power: sorted[0].Power(), Cards: sorted}, nil
	}

	// countOf: power -> how many cards of that power.
	// byCount: multiplicity -> distinct powers occurring that many times,
	// ascending.
	countOf := map[int]int{}
	powers := []int{}
	for _, c := range sorted {
		p := c.Power()
		if countOf[p] == 0 {
			powers = append(powers, p)
		}
		countOf[p]++
	}
	byCount := map[int][]int{}
	for _, p := range powers {
		n := countOf[p]
		byCount[n] = append(byCount[n], p)
	}
	for _, ps := range byCount {
		sort.Ints(ps)
	}

	total := len(sorted)
	done := func(t HandType, power int) (*Hand, error) {
		return &Hand{Type: t, Power: power, Cards: sorted}, nil
	}

	if len(byCount) == 1 && len(byCount[2]) == 1 {
		return done(Pair, sorted[0].Power())
	}

	if len(byCount) == 1 && len(byCount[3]) == 1 {
		return done(Triple, sorted[0].Power())
	}

	if len(byCount) == 1 && len(byCount[3]) == 2 {
		return done(TripleDouble, byCount[3][0])
	}

	if len(byCount) == 2 && len(byCount[3]) == 1 && len(byCount[1]) == 1 {
		return done(TripleSingle, byCount[3][0])
	}

	if len(byCount) == 2 && len(byCount[3]) == 1 && len(byCount[2]) == 1 {
		return done(TriplePair, byCount[3][0])
	}

	if len(byCount) == 2 && len(byCount[4]) == 1 && len(byCount[1]) == 1 {
		return done(FourSingle, byCount[4][0])
	}

	// Four with any two extra cards, including a pair.
	if len(byCount[4]) == 1 && total-4 == 2 {
		return done(FourTwo, byCount[4][0])
	}

	if len(byCount) == 2 && len(byCount[4]) == 1 && len(byCount[2]) == 2 {
		return done(FourTwoPair, byCount[4][0])
	}

	// Runs never include 2 or the jokers: their powers (20, 99, 100) break
	// the consecutive test against A (14) by construction.
	if len(byCount) == 1 && len(byCount[1]) >= 5 && consecutive(byCount[1]) {
		return done(Straight, byCount[1][0])
	}

	if len(byCount) == 1 && len(byCount[2]) >= 3 && consecutive(byCount[2]) {
		return done(StraightPair, byCount[2][0])
	}

	triples := byCount[3]

	// Airplane: consecutive triples carrying one single attachment each.
	if len(triples) >= 2 && len(triples) == total-len(triples)*3 && consecutive(triples) {
		return done(Airplane, triples[0])
	}

	// Airplane where one surplus triple is broken up to supply the three
	// attachments (e.g. 333 444 555 666). The engine drops the lowest
	// triple first, then the highest.
	if len(triples) >= 3 && len(triples)-1 == total-len(triples)*3+3 {
		if consecutive(triples[1:]) {
			return done(Airplane, triples[1])
		}
		if consecutive(triples[:len(triples)-1]) {
			return done(Airplane, triples[0])
		}
	}

	if len(byCount) == 2 && len(triples) >= 2 && len(byCount[2]) == len(triples) && consecutive(triples) {
		return done(AirplaneWithPair, triples[0])
	}

	// Airplane with pairs where a four-of-a-kind rides along as two pairs
	// (e.g. 333 444 5555). No singles allowed anywhere in the play.
	if len(triples) >= 2 && len(byCount[1]) == 0 && total-len(triples)*3 == len(triples)*2 && consecutive(triples) {
		return done(AirplaneWithPair, triples[0])
	}

	if len(byCount) == 1 && len(byCount[4]) == 1 {
		return done(Bomb, sorted[0].Power())
	}

	if len(byCount) == 1 && len(byCount[1]) == 2 &&
		countOf[int(card.SmallJoker)] == 1 && countOf[int(card.BigJoker)] == 1 {
		return done(Rocket, int(card.BigJoker))
	}

	return nil, ErrInvalidHand
}

// consecutive reports whether the sorted powers form a gapless run.
func consecutive(powers []int) bool {
	for i := 1; i < len(powers); i++ {
		if powers[i] != powers[i-1]+1 {
			return false
		}
	}
	return true
}
