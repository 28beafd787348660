package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		token string
		want  Card
	}{
		{"♥3", Card{Rank: Three, Suit: Hearts}},
		{"◆10", Card{Rank: Ten, Suit: Diamonds}},
		{"♣J", Card{Rank: Jack, Suit: Clubs}},
		{"♠A", Card{Rank: Ace, Suit: Spades}},
		{"♠2", Card{Rank: Two, Suit: Spades}},
		{"小王", Card{Rank: SmallJoker, Suit: NoSuit}},
		{"大王", Card{Rank: BigJoker, Suit: NoSuit}},
		{"Q", Card{Rank: Queen, Suit: NoSuit}},
		{"7", Card{Rank: Seven, Suit: NoSuit}},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			c, err := Parse(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, token := range []string{"", "♥", "♥1", "♥11", "X", "♠小王", "33"} {
		t.Run(token, func(t *testing.T) {
			_, err := Parse(token)
			assert.Error(t, err)
		})
	}

	_, err := Parse("♥15")
	require.Error(t, err)
	assert.Equal(t, "无效牌【15】", err.Error())
}

func TestParseRoundTrip(t *testing.T) {
	deck := NewDeck(nil)
	for _, name := range Names(deck.cards) {
		c, err := Parse(name)
		require.NoError(t, err)
		assert.Equal(t, name, c.Name())
	}
}

func TestParseAll(t *testing.T) {
	cards, err := ParseAll([]string{"♥3", "", "♠3", " ", "大王"})
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, "♥3", cards[0].Name())
	assert.Equal(t, "大王", cards[2].Name())

	_, err = ParseAll([]string{"♥3", "bogus"})
	assert.Error(t, err)
}

func TestPowerOrdering(t *testing.T) {
	// 2 outranks A, jokers outrank 2, big joker outranks small.
	assert.Greater(t, New(Two, Hearts).Power(), New(Ace, Spades).Power())
	assert.Greater(t, New(SmallJoker, NoSuit).Power(), New(Two, Spades).Power())
	assert.Greater(t, New(BigJoker, NoSuit).Power(), New(SmallJoker, NoSuit).Power())
	assert.Equal(t, 3, New(Three, Hearts).Power())
	assert.Equal(t, 14, New(Ace, Hearts).Power())
	assert.Equal(t, 20, New(Two, Hearts).Power())
}

func TestCompareSuitTieBreak(t *testing.T) {
	// Equal power orders hearts < diamonds < clubs < spades.
	assert.Negative(t, Compare(New(Five, Hearts), New(Five, Diamonds)))
	assert.Negative(t, Compare(New(Five, Diamonds), New(Five, Clubs)))
	assert.Negative(t, Compare(New(Five, Clubs), New(Five, Spades)))
	assert.Zero(t, Compare(New(Five, Spades), New(Five, Spades)))
	assert.Positive(t, Compare(New(Six, Hearts), New(Five, Spades)))
}

func TestSort(t *testing.T) {
	cards := []Card{
		New(Two, Hearts),
		New(Three, Spades),
		New(BigJoker, NoSuit),
		New(Three, Hearts),
		New(Ace, Clubs),
	}
	Sort(cards)
	assert.Equal(t, []string{"♥3", "♠3", "♣A", "♥2", "大王"}, Names(cards))
}
