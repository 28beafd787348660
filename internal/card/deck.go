package card

import (
	"errors"
	rand "math/rand/v2"
)

// DeckSize is the full Dou Dizhu deck: 52 suited cards plus two jokers.
const DeckSize = 54

// ErrDeckEmpty is returned when a draw outruns the deck. Reaching it during
// a deal means the room state is corrupt.
var ErrDeckEmpty = errors.New("程序错误，牌已经发完了")

// Deck is an ordered pile of cards, drained from the front by dealing.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a full 54-card deck. The rng drives Shuffle; deals are
// reproducible for a fixed seed.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, DeckSize),
		rng:   rng,
	}
	for _, suit := range Suits {
		for _, rank := range Ranks {
			d.cards = append(d.cards, New(rank, suit))
		}
	}
	d.cards = append(d.cards, New(SmallJoker, NoSuit))
	d.cards = append(d.cards, New(BigJoker, NoSuit))
	return d
}

// Shuffle permutes the deck uniformly.
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckEmpty
	}
	top := d.cards[0]
	d.cards = d.cards[1:]
	return top, nil
}

// Deal distributes per cards to each of seats hands, round-robin from seat 0.
func (d *Deck) Deal(seats, per int) ([][]Card, error) {
	hands := make([][]Card, seats)
	for i := range hands {
		hands[i] = make([]Card, 0, per)
	}
	for round := 0; round < per; round++ {
		for i := 0; i < seats; i++ {
			c, err := d.Draw()
			if err != nil {
				return nil, err
			}
			hands[i] = append(hands[i], c)
		}
	}
	return hands, nil
}

// Kitty returns the undealt remainder and empties the deck.
func (d *Deck) Kitty() []Card {
	rest := d.cards
	d.cards = nil
	return rest
}

// Remaining returns the number of cards left in the deck.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
