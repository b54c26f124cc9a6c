package link

import (
	"context"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/mowlink/pkg/frame"
	"github.com/robotalks/mowlink/pkg/frame/vesc"
)

func connOpener(conns chan net.Conn) Opener {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		select {
		case c := <-conns:
			return c, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

type testLink struct {
	*Link
	frames chan frame.Frame
	conns  chan net.Conn
	done   chan error
}

func startLink(t *testing.T, opts Options) *testLink {
	tl := &testLink{
		frames: make(chan frame.Frame, 64),
		conns:  make(chan net.Conn, 2),
		done:   make(chan error, 1),
	}
	dec := vesc.NewDecoder(frame.HandleFrameFunc(func(fr frame.Frame) {
		tl.frames <- fr
	}))
	tl.Link = New("motor", frame.ProtocolVESC, connOpener(tl.conns), dec, opts)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { tl.done <- tl.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.Equal(t, context.Canceled, <-tl.done)
	})
	return tl
}

func (tl *testLink) connect() net.Conn {
	local, peer := net.Pipe()
	tl.conns <- local
	return peer
}

func (tl *testLink) next(t *testing.T) frame.Frame {
	select {
	case fr := <-tl.frames:
		return fr
	case <-time.After(2 * time.Second):
		require.FailNow(t, "no frame decoded")
	}
	return frame.Frame{}
}

func encode(t *testing.T, payload ...byte) []byte {
	pkt, err := vesc.Encode(payload)
	require.NoError(t, err)
	return pkt
}

func TestLinkDecodesShortResponses(t *testing.T) {
	tl := startLink(t, Options{BufferSize: 64, FlushTimeout: 5 * time.Millisecond})
	peer := tl.connect()
	defer peer.Close()

	_, err := peer.Write(encode(t, byte(vesc.CommFWVersion), 5, 2))
	require.NoError(t, err)
	fr := tl.next(t)
	assert.EqualValues(t, vesc.CommFWVersion, fr.ID)
	assert.Equal(t, []byte{byte(vesc.CommFWVersion), 5, 2}, fr.Payload)

	pkt := encode(t, byte(vesc.CommAlive))
	_, err = peer.Write(pkt[:3])
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = peer.Write(pkt[3:])
	require.NoError(t, err)
	assert.EqualValues(t, vesc.CommAlive, tl.next(t).ID)

	s := tl.Stats()
	assert.True(t, s.Connected)
	assert.True(t, s.Flushes >= 2)
	assert.EqualValues(t, 2, s.Decoder.Frames)
}

func TestLinkDecodesFullBuffers(t *testing.T) {
	tl := startLink(t, Options{BufferSize: 16, FlushTimeout: 5 * time.Millisecond})
	peer := tl.connect()
	defer peer.Close()

	var stream []byte
	for i := 0; i < 10; i++ {
		stream = append(stream, encode(t, byte(vesc.CommGetValues), byte(i), 1, 2, 3, 4, 5)...)
	}
	go func() {
		for len(stream) > 0 {
			n := 16
			if n > len(stream) {
				n = len(stream)
			}
			if _, err := peer.Write(stream[:n]); err != nil {
				return
			}
			stream = stream[n:]
			time.Sleep(5 * time.Millisecond)
		}
	}()
	for i := 0; i < 10; i++ {
		fr := tl.next(t)
		assert.Equal(t, byte(i), fr.Payload[1])
	}
	assert.True(t, tl.Stats().HandOffs > 1)
}

func TestLinkSendAndReconnect(t *testing.T) {
	tl := startLink(t, Options{FlushTimeout: 5 * time.Millisecond, RetryDelay: 10 * time.Millisecond})
	assert.Equal(t, ErrNotConnected, tl.Send([]byte{1}))

	peer := tl.connect()
	require.Eventually(t, tl.Connected, time.Second, time.Millisecond)
	req := encode(t, byte(vesc.CommGetValues))
	go tl.Send(req)
	buf := make([]byte, 16)
	n, err := peer.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, req, buf[:n])

	peer.Close()
	require.Eventually(t, func() bool { return !tl.Connected() }, time.Second, time.Millisecond)
	peer = tl.connect()
	defer peer.Close()
	_, err = peer.Write(encode(t, byte(vesc.CommAlive)))
	require.NoError(t, err)
	assert.EqualValues(t, vesc.CommAlive, tl.next(t).ID)
}

func TestLinkResetsDecoderOnReconnect(t *testing.T) {
	tl := startLink(t, Options{FlushTimeout: 5 * time.Millisecond, RetryDelay: 10 * time.Millisecond})
	peer := tl.connect()
	cut := encode(t, byte(vesc.CommGetValues), 1, 2, 3)
	_, err := peer.Write(cut[:4])
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return tl.Stats().Decoder.Pending == 4
	}, time.Second, time.Millisecond)

	peer.Close()
	require.Eventually(t, func() bool { return !tl.Connected() }, time.Second, time.Millisecond)
	peer = tl.connect()
	defer peer.Close()
	_, err = peer.Write(encode(t, byte(vesc.CommAlive)))
	require.NoError(t, err)
	assert.EqualValues(t, vesc.CommAlive, tl.next(t).ID)
	st := tl.Stats()
	assert.EqualValues(t, 1, st.Resets)
	assert.Zero(t, st.Decoder.FramingErrors)
}

func TestLinkHousekeeping(t *testing.T) {
	var calls atomic.Int32
	startLink(t, Options{
		FlushTimeout: time.Millisecond,
		Housekeepers: []Housekeeper{HousekeepFunc(func(ctx context.Context, now time.Time) {
			calls.Add(1)
		})},
	})
	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestByteTime(t *testing.T) {
	assert.Equal(t, 100*time.Microsecond, ByteTime(100000))
	assert.Equal(t, time.Duration(86805), ByteTime(115200))
	assert.Zero(t, ByteTime(0))
}
