package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyufeng/doudizhu/internal/protocol"
)

func findFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()
	return port
}

func dialServer(t *testing.T, addr string) net.Conn {
	t.Helper()
	var conn net.Conn
	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 5*time.Second, 10*time.Millisecond)
	return conn
}

// playerResult is what one scripted player observed by the end of the round.
type playerResult struct {
	name     string
	bidTurns int
	deals    int
	victory  string
}

// runPlayer drives one seat: bid from the script when prompted, play the
// lowest card on a free turn, pass on a follow turn, and exit on the round
// reset frame.
func runPlayer(conn net.Conn, name string, bids []string, results chan<- playerResult) {
	res := playerResult{name: name}
	var hand []string
	landlordSet := false

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for sc.Scan() {
		f, err := protocol.DecodeFrame(sc.Bytes())
		if err != nil {
			continue
		}
		switch f.Code {
		case protocol.CodeStop:
			results <- res
			return
		case protocol.CodeState:
			u, err := f.Update()
			if err != nil {
				continue
			}
			if u.MyCardList != nil {
				hand = *u.MyCardList
				// A fresh 17-card hand before the landlord reveal is a deal.
				if !landlordSet && len(hand) == 17 {
					res.deals++
				}
			}
			if strings.Contains(u.TopMessage, "地主是:") {
				landlordSet = true
			}
			if strings.Contains(u.TopMessage, "胜利") {
				res.victory = u.TopMessage
			}
			if u.State == nil {
				continue
			}
			switch *u.State {
			case protocol.StateMarking:
				res.bidTurns++
				bid := bids[0]
				if len(bids) > 1 {
					bids = bids[1:]
				}
				_, _ = conn.Write([]byte(bid))
			case protocol.StateFree:
				if len(hand) > 0 {
					_, _ = conn.Write([]byte(hand[0]))
				}
			case protocol.StatePlaying:
				_, _ = conn.Write([]byte("pass"))
			}
		}
	}
	results <- res
}

func join(t *testing.T, conn net.Conn, room, player string) {
	t.Helper()
	_, err := fmt.Fprintf(conn, "%s\n%s", room, player)
	require.NoError(t, err)
}

func TestFullRound(t *testing.T) {
	mock := quartz.NewMock(t)
	port := findFreePort(t)
	cfg := &Config{Server: Settings{Address: "127.0.0.1", Port: port, LogLevel: "error"}}

	srv := NewServer(cfg, testLogger(), mock, 20240817)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start(ctx) }()

	// Intercept the post-victory banner timer so the test controls the wait.
	trap := mock.Trap().NewTimer("win-banner")
	defer trap.Close()

	addr := cfg.TCPAddr()
	room := srv.room("table1")
	results := make(chan playerResult, maxSeats)

	// Everyone passes the first deal so the room redeals; alice then bids 3
	// and takes the landlord seat.
	alice := dialServer(t, addr)
	defer alice.Close()
	join(t, alice, "table1", "alice")
	go runPlayer(alice, "alice", []string{"0", "3"}, results)
	require.Eventually(t, func() bool { return room.Seats() == 1 }, 5*time.Second, 10*time.Millisecond)

	bob := dialServer(t, addr)
	defer bob.Close()
	join(t, bob, "table1", "bob")
	go runPlayer(bob, "bob", []string{"0"}, results)
	require.Eventually(t, func() bool { return room.Seats() == 2 }, 5*time.Second, 10*time.Millisecond)

	carol := dialServer(t, addr)
	defer carol.Close()
	join(t, carol, "table1", "carol")
	go runPlayer(carol, "carol", []string{"0"}, results)
	require.Eventually(t, func() bool { return room.Seats() == 3 }, 5*time.Second, 10*time.Millisecond)

	// A fourth joiner is turned away with a popup and a closed connection.
	dave := dialServer(t, addr)
	defer dave.Close()
	join(t, dave, "table1", "dave")
	daveFrames := frameReader(dave)
	f := nextFrame(t, daveFrames)
	assert.Equal(t, protocol.CodeInfo, f.Code)
	msg, err := f.Info()
	require.NoError(t, err)
	assert.Equal(t, ErrRoomFull.Error(), msg)

	// Alice plays a single every free turn while the others pass, so she
	// empties her 20 cards first. Release the banner timer, skip the five
	// seconds, and collect the round-reset observations.
	trapCtx, trapCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer trapCancel()
	call := trap.MustWait(trapCtx)
	call.MustRelease(trapCtx)
	mock.Advance(winBannerDelay).MustWait(trapCtx)

	byName := make(map[string]playerResult, maxSeats)
	for i := 0; i < maxSeats; i++ {
		select {
		case r := <-results:
			byName[r.name] = r
		case <-time.After(10 * time.Second):
			t.Fatal("timed out waiting for player results")
		}
	}

	// Two deals: the all-pass deal plus the redeal alice won.
	assert.Equal(t, 2, byName["alice"].bidTurns)
	assert.Equal(t, 2, byName["alice"].deals)
	assert.Equal(t, 1, byName["bob"].bidTurns)
	assert.Equal(t, 1, byName["carol"].bidTurns)

	for _, name := range []string{"alice", "bob", "carol"} {
		assert.Contains(t, byName[name].victory, "alice:地主", "player %s", name)
		assert.Contains(t, byName[name].victory, "胜利", "player %s", name)
	}

	alice.Close()
	bob.Close()
	carol.Close()
	cancel()
	select {
	case err := <-serverErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// A seat whose socket dies while it is not on turn must still be detached
// promptly: the heartbeat write failure closes the session and the room
// watcher broadcasts the leave and the round reset without waiting for the
// game loop to touch the dead seat.
func TestIdleSeatLossNotifiesSurvivors(t *testing.T) {
	mock := quartz.NewMock(t)
	port := findFreePort(t)
	cfg := &Config{Server: Settings{Address: "127.0.0.1", Port: port, LogLevel: "error"}}
	srv := NewServer(cfg, testLogger(), mock, 77)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Start(ctx) }()

	addr := cfg.TCPAddr()
	room := srv.room("table1")

	alice := dialServer(t, addr)
	defer alice.Close()
	join(t, alice, "table1", "alice")
	require.Eventually(t, func() bool { return room.Seats() == 1 }, 5*time.Second, 10*time.Millisecond)

	bob := dialServer(t, addr)
	defer bob.Close()
	join(t, bob, "table1", "bob")
	require.Eventually(t, func() bool { return room.Seats() == 2 }, 5*time.Second, 10*time.Millisecond)

	carol := dialServer(t, addr)
	join(t, carol, "table1", "carol")
	require.Eventually(t, func() bool { return room.Seats() == 3 }, 5*time.Second, 10*time.Millisecond)

	aliceFrames := frameReader(alice)
	bobFrames := frameReader(bob)

	// The round starts and blocks reading alice's bid. Carol drops while
	// idle; nobody ever sends anything.
	require.NoError(t, carol.Close())

	// The first heartbeat write after the close may still land in the
	// kernel buffer; the next one fails and tears the seat down. Keep the
	// clock moving in the background while the survivors' streams are
	// scanned for the leave broadcast followed by the reset frame.
	advCtx, advCancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer advCancel()
	go func() {
		for i := 0; i < 5; i++ {
			select {
			case <-advCtx.Done():
				return
			default:
			}
			mock.Advance(heartbeatInterval).MustWait(advCtx)
			time.Sleep(100 * time.Millisecond)
		}
	}()

	waitLeaveThenStop := func(name string, frames <-chan *protocol.Frame) {
		sawLeave := false
		deadline := time.After(15 * time.Second)
		for {
			select {
			case f, ok := <-frames:
				require.True(t, ok, "%s connection closed early", name)
				switch f.Code {
				case protocol.CodeState:
					if u, err := f.Update(); err == nil && strings.Contains(u.TopMessage, "【carol】退出了房间") {
						sawLeave = true
					}
				case protocol.CodeStop:
					require.True(t, sawLeave, "%s got the reset frame before the leave broadcast", name)
					return
				}
			case <-deadline:
				t.Fatalf("%s never saw leave broadcast and reset frame", name)
			}
		}
	}
	waitLeaveThenStop("alice", aliceFrames)
	waitLeaveThenStop("bob", bobFrames)

	require.Eventually(t, func() bool { return room.Seats() == 2 }, 5*time.Second, 10*time.Millisecond)
}

func TestBadHandshakeDropsConnection(t *testing.T) {
	port := findFreePort(t)
	cfg := &Config{Server: Settings{Address: "127.0.0.1", Port: port, LogLevel: "error"}}
	srv := NewServer(cfg, testLogger(), quartz.NewMock(t), 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Start(ctx) }()

	conn := dialServer(t, cfg.TCPAddr())
	defer conn.Close()
	_, err := conn.Write([]byte("room-without-player"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 16)
	_, err = conn.Read(buf)
	assert.Error(t, err, "server should close the connection without a frame")

	cancel()
	select {
	case err := <-serverErr:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRoomsAreIndependent(t *testing.T) {
	port := findFreePort(t)
	cfg := &Config{Server: Settings{Address: "127.0.0.1", Port: port, LogLevel: "error"}}
	srv := NewServer(cfg, testLogger(), quartz.NewMock(t), 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Start(ctx) }()

	a := dialServer(t, cfg.TCPAddr())
	defer a.Close()
	join(t, a, "east", "alice")

	b := dialServer(t, cfg.TCPAddr())
	defer b.Close()
	join(t, b, "west", "bob")

	require.Eventually(t, func() bool {
		return srv.room("east").Seats() == 1 && srv.room("west").Seats() == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, srv.Rooms())
}
