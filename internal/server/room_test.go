package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyufeng/doudizhu/internal/card"
)

func cards(t *testing.T, tokens string) []card.Card {
	t.Helper()
	cs, err := card.ParseAll(strings.Fields(tokens))
	require.NoError(t, err)
	return cs
}

func TestSeatAddCardsKeepsSorted(t *testing.T) {
	st := &Seat{}
	st.addCards(cards(t, "♠A ♥3 大王"))
	st.addCards(cards(t, "♥2 ◆4"))
	assert.Equal(t, []string{"♥3", "◆4", "♠A", "♥2", "大王"}, st.cardNames())
}

func TestSeatRemoveCards(t *testing.T) {
	st := &Seat{}
	st.addCards(cards(t, "♥3 ♠3 ♥9 ♠K"))

	require.NoError(t, st.removeCards(cards(t, "♥3 ♠3")))
	assert.Equal(t, []string{"♥9", "♠K"}, st.cardNames())
}

func TestSeatRemoveCardsMissing(t *testing.T) {
	st := &Seat{}
	st.addCards(cards(t, "♥3 ♥9"))

	err := st.removeCards(cards(t, "♥3 ♠3"))
	require.Error(t, err)
	assert.Equal(t, "你没有足够的【♠3】", err.Error())
	// A rejected play leaves the hand untouched.
	assert.Equal(t, []string{"♥3", "♥9"}, st.cardNames())
}

func TestSeatRemoveCardsDuplicates(t *testing.T) {
	st := &Seat{}
	st.addCards(cards(t, "♥3 ♥3 ♥9"))

	err := st.removeCards(cards(t, "♥3 ♥3 ♥3"))
	require.Error(t, err)
	assert.Len(t, st.cardNames(), 3)

	require.NoError(t, st.removeCards(cards(t, "♥3 ♥3")))
	assert.Equal(t, []string{"♥9"}, st.cardNames())
}
