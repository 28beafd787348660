// Package card defines the 54-card Dou Dizhu deck: rank/suit values, the
// power ordering used for comparisons (2 above A, jokers above 2), and
// parsing of the wire card tokens (e.g. "♥3", "♠10", "大王").
package card

import (
	"fmt"
	"sort"
	"strings"
)

// Suit is a card suit. Jokers carry NoSuit. The declaration order is the
// tie-break order used when sorting cards of equal power.
type Suit int

const (
	NoSuit Suit = iota
	Hearts
	Diamonds
	Clubs
	Spades
)

// String returns the suit glyph used on the wire.
func (s Suit) String() string {
	switch s {
	case Hearts:
		return "♥"
	case Diamonds:
		return "◆"
	case Clubs:
		return "♣"
	case Spades:
		return "♠"
	default:
		return ""
	}
}

// Rank is a card rank. The numeric value of a Rank is its power: 3..14 for
// 3..A, 20 for 2, and 99/100 for the jokers, so 2 outranks A and the big
// joker outranks everything.
type Rank int

const (
	Three Rank = 3
	Four  Rank = 4
	Five  Rank = 5
	Six   Rank = 6
	Seven Rank = 7
	Eight Rank = 8
	Nine  Rank = 9
	Ten   Rank = 10
	Jack  Rank = 11
	Queen Rank = 12
	King  Rank = 13
	Ace   Rank = 14

	Two        Rank = 20
	SmallJoker Rank = 99
	BigJoker   Rank = 100
)

// Ranks lists the thirteen suited ranks in deck-creation order.
var Ranks = []Rank{Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King, Ace}

// Suits lists the four suits in tie-break order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// String returns the rank label used on the wire.
func (r Rank) String() string {
	switch r {
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	case Ace:
		return "A"
	case Two:
		return "2"
	case SmallJoker:
		return "小王"
	case BigJoker:
		return "大王"
	default:
		if r >= Three && r <= Ten {
			return fmt.Sprintf("%d", int(r))
		}
		return "?"
	}
}

var rankByLabel = map[string]Rank{
	"3": Three, "4": Four, "5": Five, "6": Six, "7": Seven, "8": Eight,
	"9": Nine, "10": Ten, "J": Jack, "Q": Queen, "K": King, "A": Ace,
	"2": Two, "小王": SmallJoker, "大王": BigJoker,
}

var suitByGlyph = map[rune]Suit{
	'♥': Hearts, '◆': Diamonds, '♣': Clubs, '♠': Spades,
}

// Card is an immutable playing card. Identity is (Rank, Suit); the wire name
// is the suit glyph followed by the rank label.
type Card struct {
	Rank Rank
	Suit Suit
}

// New creates a card.
func New(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// Name returns the wire representation, e.g. "♠A" or "小王".
func (c Card) Name() string {
	return c.Suit.String() + c.Rank.String()
}

// String implements fmt.Stringer.
func (c Card) String() string { return c.Name() }

// Power returns the comparison value of the card.
func (c Card) Power() int { return int(c.Rank) }

// IsJoker reports whether the card is one of the two jokers.
func (c Card) IsJoker() bool {
	return c.Rank == SmallJoker || c.Rank == BigJoker
}

// Compare orders two cards by (power, suit) ascending.
func Compare(a, b Card) int {
	if a.Rank != b.Rank {
		if a.Rank < b.Rank {
			return -1
		}
		return 1
	}
	if a.Suit != b.Suit {
		if a.Suit < b.Suit {
			return -1
		}
		return 1
	}
	return 0
}

// Sort sorts cards in place ascending by (power, suit).
func Sort(cards []Card) {
	sort.Slice(cards, func(i, j int) bool {
		return Compare(cards[i], cards[j]) < 0
	})
}

// Names renders a card list in wire form.
func Names(cards []Card) []string {
	names := make([]string, len(cards))
	for i, c := range cards {
		names[i] = c.Name()
	}
	return names
}

// Parse converts a single wire token into a card. A leading suit glyph is
// optional: bare rank labels (and the joker words, which never carry a
// suit) parse as suitless cards.
func Parse(token string) (Card, error) {
	runes := []rune(token)
	if len(runes) == 0 {
		return Card{}, fmt.Errorf("无效牌【】")
	}
	if suit, ok := suitByGlyph[runes[0]]; ok {
		rank, ok := rankByLabel[string(runes[1:])]
		if !ok {
			return Card{}, fmt.Errorf("无效牌【%s】", string(runes[1:]))
		}
		return Card{Rank: rank, Suit: suit}, nil
	}
	rank, ok := rankByLabel[token]
	if !ok {
		return Card{}, fmt.Errorf("无效牌【%s】", token)
	}
	return Card{Rank: rank}, nil
}

// ParseAll converts a list of wire tokens, skipping empty ones.
func ParseAll(tokens []string) ([]Card, error) {
	cards := make([]Card, 0, len(tokens))
	for _, tok := range tokens {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		c, err := Parse(tok)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}
