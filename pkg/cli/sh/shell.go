// Package sh provides the interactive shell of the link daemon.
package sh

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/mowlink/pkg/frame"
	"github.com/robotalks/mowlink/pkg/frame/vesc"
	"github.com/robotalks/mowlink/pkg/frame/xesc"
	fx "github.com/robotalks/mowlink/pkg/framework"
	"github.com/robotalks/mowlink/pkg/station"
	"github.com/robotalks/mowlink/pkg/telemetry"
)

// Shell provides ishell backed interactive shell over a Station.
type Shell struct {
	OutputJSON bool

	Shell   *ishell.Shell
	Station *station.Station
}

const (
	shellKey = "$shell"
	prompt   = "mowlink > "
)

var commands = []*ishell.Cmd{
	&LinksCmd,
	&StatsCmd,
	&StateCmd,
	&EmergencyCmd,
	&SendCmd,
	&DutyCmd,
}

// New creates a new shell.
func New(st *station.Station) *Shell {
	s := &Shell{Shell: ishell.New(), Station: st}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Run implements Runnable. The shell is closed when ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	return fx.RunWithContextCancel(ctx, s.Shell.Close, func() error {
		s.Shell.Run()
		return nil
	})
}

// Name implements Named.
func (s *Shell) Name() string {
	return "shell"
}

// Process runs a single command line.
func (s *Shell) Process(args ...string) error {
	return s.Shell.Process(args...)
}

func (s *Shell) print(c *ishell.Context, v interface{}, text string) {
	if !s.OutputJSON {
		c.Println(text)
		return
	}
	out, err := json.Marshal(v)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(out))
}

// WithLink wraps command func requiring a link name as the first arg.
func WithLink(fn func(c *ishell.Context, l *station.Link)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if len(c.Args) < 1 {
			c.Err(fmt.Errorf("link name expected"))
			return
		}
		l := ShellFrom(c).Station.Link(c.Args[0])
		if l == nil {
			c.Err(fmt.Errorf("unknown link %q", c.Args[0]))
			return
		}
		fn(c, l)
	}
}

var (
	// LinksCmd lists links.
	LinksCmd = ishell.Cmd{
		Name:    "links",
		Aliases: []string{"l"},
		Help:    "list links",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			for _, l := range s.Station.Links() {
				st := l.Stats()
				c.Printf("%-12s %-6s %-40s connected=%v frames=%d errors=%d\n",
					l.Name(), l.Protocol(), l.Config.Port, st.Connected, st.Decoder.Frames,
					st.Decoder.FramingErrors+st.Decoder.IntegrityErrors)
			}
			if p := s.Station.Battery(); p != nil {
				c.Printf("%-12s %-6s present=%v\n", station.BatteryName, frame.ProtocolSMBus, p.Present())
			}
		},
	}

	// StatsCmd prints counters of a link.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "LINK",
		Func: WithLink(func(c *ishell.Context, l *station.Link) {
			st := l.Stats()
			ShellFrom(c).print(c, st, strings.Join([]string{
				fmt.Sprintf("connected: %v", st.Connected),
				fmt.Sprintf("transport: in=%d handoffs=%d flushes=%d rearms=%d overruns=%d dropped=%d",
					st.BytesIn, st.HandOffs, st.Flushes, st.Rearms, st.Overruns, st.Dropped),
				fmt.Sprintf("worker: events=%d timeouts=%d", st.Events, st.Timeouts),
				fmt.Sprintf("decoder: in=%d consumed=%d frames=%d framing=%d integrity=%d overflows=%d pending=%d",
					st.Decoder.BytesIn, st.Decoder.BytesConsumed, st.Decoder.Frames,
					st.Decoder.FramingErrors, st.Decoder.IntegrityErrors, st.Decoder.Overflows, st.Decoder.Pending),
			}, "\n"))
		}),
	}

	// StateCmd prints state cells.
	StateCmd = ishell.Cmd{
		Name:    "state",
		Aliases: []string{"s"},
		Help:    "[NAME...]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			cells := s.Station.Sink.Cells()
			if len(c.Args) > 0 {
				cells = cells[:0:0]
				for _, name := range c.Args {
					cell := s.Station.Sink.Cell(name)
					if cell == nil {
						c.Err(fmt.Errorf("unknown state %q", name))
						return
					}
					cells = append(cells, cell)
				}
			}
			for _, cell := range cells {
				r := telemetry.RecordOf(cell)
				s.print(c, r, r.String())
			}
		},
	}

	// EmergencyCmd prints the emergency flags.
	EmergencyCmd = ishell.Cmd{
		Name:    "emergency",
		Aliases: []string{"e"},
		Help:    "print emergency flags",
		Func: func(c *ishell.Context) {
			flags := ShellFrom(c).Station.Sink.Emergency.Load()
			ShellFrom(c).print(c, flags.String(), flags.String())
		},
	}

	// SendCmd writes raw bytes to a link.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "LINK HEX",
		Func: WithLink(func(c *ishell.Context, l *station.Link) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("hex bytes expected"))
				return
			}
			p, err := hex.DecodeString(strings.Join(c.Args[1:], ""))
			if err != nil {
				c.Err(err)
				return
			}
			if err := l.Send(p); err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}

	// DutyCmd sets the duty cycle of a motor controller.
	DutyCmd = ishell.Cmd{
		Name: "duty",
		Help: "LINK -1..1",
		Func: WithLink(func(c *ishell.Context, l *station.Link) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("duty cycle expected"))
				return
			}
			duty, err := strconv.ParseFloat(c.Args[1], 64)
			if err == nil && (duty < -1 || duty > 1) {
				err = fmt.Errorf("duty cycle %v out of range", duty)
			}
			if err != nil {
				c.Err(err)
				return
			}
			switch l.Protocol() {
			case frame.ProtocolVESC:
				err = l.Motor.Send(vesc.SetDuty(duty))
			case frame.ProtocolXESC:
				var pkt []byte
				if pkt, err = xesc.Control(duty); err == nil {
					err = l.Send(pkt)
				}
			default:
				err = fmt.Errorf("link %s is not a motor controller", l.Name())
			}
			if err != nil {
				c.Err(err)
				return
			}
			c.Println("OK")
		}),
	}
)
