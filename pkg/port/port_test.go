package port

import (
	"context"
	"io"
	"net"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name string
		url  string
		baud int
		spec Spec
		err  bool
	}{
		{name: "serial query", url: "serial:///dev/ttyAMA1?baud=115200", spec: Spec{Scheme: "serial", Path: "/dev/ttyAMA1", Baud: 115200}},
		{name: "serial override", url: "serial:///dev/ttyS0?baud=9600", baud: 38400, spec: Spec{Scheme: "serial", Path: "/dev/ttyS0", Baud: 38400}},
		{name: "serial no baud", url: "serial:///dev/ttyS0", err: true},
		{name: "serial bad baud", url: "serial:///dev/ttyS0?baud=fast", err: true},
		{name: "tcp", url: "tcp://10.0.0.2:9000", spec: Spec{Scheme: "tcp", Path: "10.0.0.2:9000"}},
		{name: "tcp no host", url: "tcp:///x", err: true},
		{name: "ws", url: "ws://bench:8080/gps", spec: Spec{Scheme: "ws", Path: "ws://bench:8080/gps"}},
		{name: "unknown", url: "can://can0", err: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Parse(tc.url, tc.baud)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.spec, s)
		})
	}
}

func TestOpenTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn)
	}()

	open, err := Opener("tcp://"+ln.Addr().String(), 0)
	require.NoError(t, err)
	rw, err := open(context.Background())
	require.NoError(t, err)
	defer rw.Close()
	_, err = rw.Write([]byte("$GPGGA"))
	require.NoError(t, err)
	buf := make([]byte, 6)
	_, err = io.ReadFull(rw, buf)
	require.NoError(t, err)
	assert.Equal(t, "$GPGGA", string(buf))
}

func TestOpenWebsocket(t *testing.T) {
	srv := httptest.NewServer(websocket.Handler(func(conn *websocket.Conn) {
		io.Copy(conn, conn)
	}))
	defer srv.Close()

	open, err := Opener(strings.Replace(srv.URL, "http://", "ws://", 1), 0)
	require.NoError(t, err)
	rw, err := open(context.Background())
	require.NoError(t, err)
	defer rw.Close()
	_, err = rw.Write([]byte{0xb5, 0x62, 0x05, 0x01})
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(rw, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xb5, 0x62, 0x05, 0x01}, buf)
}
