// Package protocol defines the newline-delimited JSON wire format spoken
// between server and clients, and the tokenizing of inbound play commands.
//
// Every server frame is one JSON object per line:
//
//	{"code":0,"data":{...partial update...},"player":"name"}
//
// code 0 carries a delta Update (absent fields mean "unchanged" on the
// client), code 1 a popup string, code -1 a round-reset signal with null
// data.
package protocol

import (
	"encoding/json"
	"strings"
)

// Frame codes.
const (
	CodeState = 0  // data is a partial Update
	CodeInfo  = 1  // data is a popup string
	CodeStop  = -1 // data is null; reset local round state
)

// PlayState is the per-seat state tag carried in Update.State.
type PlayState int

const (
	StateWait PlayState = iota
	StateMarking
	StatePlaying
	StateFree
)

func (s PlayState) String() string {
	switch s {
	case StateWait:
		return "WAIT"
	case StateMarking:
		return "MARKING"
	case StatePlaying:
		return "PLAYING"
	case StateFree:
		return "FREE"
	default:
		return "?"
	}
}

// Frame is one wire message.
type Frame struct {
	Code   int             `json:"code"`
	Data   json.RawMessage `json:"data"`
	Player string          `json:"player"`
}

// NewFrame marshals data into a frame. A nil data encodes as JSON null.
func NewFrame(code int, data any, player string) (*Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Frame{Code: code, Data: raw, Player: player}, nil
}

// Encode renders the frame as a newline-terminated JSON line.
func (f *Frame) Encode() ([]byte, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// DecodeFrame parses one line into a frame.
func DecodeFrame(line []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(line, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Update decodes a code-0 frame's data.
func (f *Frame) Update() (*Update, error) {
	var u Update
	if err := json.Unmarshal(f.Data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Info decodes a code-1 frame's data.
func (f *Frame) Info() (string, error) {
	var s string
	err := json.Unmarshal(f.Data, &s)
	return s, err
}

// Update is the partial game-state record of a code-0 frame. Pointer fields
// distinguish "absent" from legitimate zero values (seat index 0, state
// WAIT, an emptied card list), so the server emits just the deltas it
// changed.
type Update struct {
	MyIndex             *int       `json:"my_index,omitempty"`
	NameList            []string   `json:"name_list,omitempty"`
	MyCardList          *[]string  `json:"my_card_list,omitempty"`
	TopMessage          string     `json:"top_message,omitempty"`
	CardCountList       []int      `json:"card_count_list,omitempty"`
	LastCardPlayerIndex *int       `json:"last_card_player_index,omitempty"`
	LastCardType        string     `json:"last_card_type,omitempty"`
	LastCardList        *[]string  `json:"last_card_list,omitempty"`
	RemainCardList      []string   `json:"remain_card_list,omitempty"`
	State               *PlayState `json:"state,omitempty"`
}

// Int returns a pointer for optional int fields.
func Int(v int) *int { return &v }

// List returns a pointer for optional card-list fields; the pointed-to
// slice may be empty and still serializes as [].
func List(v []string) *[]string {
	if v == nil {
		v = []string{}
	}
	return &v
}

// State returns a pointer for the state tag.
func State(s PlayState) *PlayState { return &s }

// IsPass reports whether a command declines to play.
func IsPass(cmd string) bool {
	return cmd == "不出" || strings.EqualFold(cmd, "pass")
}

// PlayTokens splits a play command into card tokens. Tokens are upper-cased
// and a trailing two-digit type annotation from newer clients is dropped;
// the server classifies authoritatively either way.
func PlayTokens(cmd string) []string {
	fields := strings.Fields(strings.ToUpper(cmd))
	if n := len(fields); n > 1 {
		if last := fields[n-1]; len(last) == 2 && isDigits(last) {
			fields = fields[:n-1]
		}
	}
	return fields
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
