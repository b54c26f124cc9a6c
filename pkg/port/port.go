// Package port opens the byte stream of a link from a URL.
//
//	serial:///dev/ttyAMA1?baud=115200
//	tcp://192.168.1.20:9000
//	ws://bench.local:8080/gps
package port

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"

	"go.bug.st/serial"
	"golang.org/x/net/websocket"
)

// Spec is a parsed port URL.
type Spec struct {
	Scheme string
	// Path is the device path for serial, host:port for tcp and the full
	// URL for websocket.
	Path string
	Baud int
}

// Parse parses a port URL. baud overrides the query when positive.
func Parse(rawURL string, baud int) (Spec, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Spec{}, err
	}
	s := Spec{Scheme: u.Scheme, Baud: baud}
	switch u.Scheme {
	case "serial":
		s.Path = u.Path
		if s.Path == "" {
			return s, fmt.Errorf("port: %q has no device path", rawURL)
		}
		if s.Baud <= 0 {
			if v := u.Query().Get("baud"); v != "" {
				if s.Baud, err = strconv.Atoi(v); err != nil {
					return s, fmt.Errorf("port: invalid baud %q: %w", v, err)
				}
			}
		}
		if s.Baud <= 0 {
			return s, fmt.Errorf("port: %q needs a baud rate", rawURL)
		}
	case "tcp":
		if u.Host == "" {
			return s, fmt.Errorf("port: %q has no host", rawURL)
		}
		s.Path = u.Host
	case "ws", "wss":
		s.Path = u.String()
	default:
		return s, fmt.Errorf("port: unsupported scheme %q", u.Scheme)
	}
	return s, nil
}

// Open opens the port.
func (s Spec) Open(ctx context.Context) (io.ReadWriteCloser, error) {
	switch s.Scheme {
	case "serial":
		return serial.Open(s.Path, &serial.Mode{
			BaudRate: s.Baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
	case "tcp":
		var d net.Dialer
		return d.DialContext(ctx, "tcp", s.Path)
	default:
		cfg, err := websocket.NewConfig(s.Path, "http://localhost/")
		if err != nil {
			return nil, err
		}
		conn, err := websocket.DialConfig(cfg)
		if err != nil {
			return nil, err
		}
		conn.PayloadType = websocket.BinaryFrame
		return conn, nil
	}
}

// Opener returns a function opening rawURL, validated up front.
func Opener(rawURL string, baud int) (func(context.Context) (io.ReadWriteCloser, error), error) {
	s, err := Parse(rawURL, baud)
	if err != nil {
		return nil, err
	}
	return s.Open, nil
}
