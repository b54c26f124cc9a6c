package vesc

import (
	"context"
	"errors"
	"sync"

	"github.com/robotalks/mowlink/pkg/frame"
)

var (
	// ErrNoReply indicates a reply arrived for a later request first,
	// so the earlier one will never be answered.
	ErrNoReply = errors.New("vesc: no reply")
)

// Sender writes an encoded frame to the link.
type Sender interface {
	Send([]byte) error
}

// Result is the outcome of a request.
type Result struct {
	Err   error
	Frame frame.Frame
}

// Request represents a pending request waiting for reply.
type Request struct {
	cmd      Command
	resultCh chan Result
	next     *Request
}

// Command returns the command id of the request.
func (r *Request) Command() Command {
	return r.cmd
}

// ResultChan returns the chan to retrieve result.
func (r *Request) ResultChan() <-chan Result {
	return r.resultCh
}

// Client pairs requests with replies on one motor-controller link.
// Replies arrive in request order; a reply to a later request resolves
// every earlier pending request with ErrNoReply.
type Client struct {
	link Sender

	lock sync.Mutex
	head *Request
	tail *Request
}

// NewClient creates a Client sending through link.
func NewClient(link Sender) *Client {
	return &Client{link: link}
}

// Send encodes and sends a payload without waiting for any reply.
func (c *Client) Send(payload []byte) error {
	pkt, err := Encode(payload)
	if err != nil {
		return err
	}
	return c.link.Send(pkt)
}

// Do sends a request and returns a Request for the reply.
// Commands without reply resolve immediately after sending.
func (c *Client) Do(payload []byte) *Request {
	req := &Request{resultCh: make(chan Result, 1)}
	if len(payload) > 0 {
		req.cmd = Command(payload[0])
	}
	pkt, err := Encode(payload)
	if err != nil {
		req.resultCh <- Result{Err: err}
		return req
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if err = c.link.Send(pkt); err != nil {
		req.resultCh <- Result{Err: err}
		return req
	}
	if !req.cmd.HasReply() {
		req.resultCh <- Result{}
		return req
	}
	if c.head == nil {
		c.head = req
	} else {
		c.tail.next = req
	}
	c.tail = req
	return req
}

// Call sends a request and waits for its reply or ctx.
func (c *Client) Call(ctx context.Context, payload []byte) (frame.Frame, error) {
	req := c.Do(payload)
	select {
	case res := <-req.resultCh:
		return res.Frame, res.Err
	case <-ctx.Done():
		c.cancel(req)
		return frame.Frame{}, ctx.Err()
	}
}

func (c *Client) cancel(req *Request) {
	c.lock.Lock()
	defer c.lock.Unlock()
	var prev *Request
	for curr := c.head; curr != nil; prev, curr = curr, curr.next {
		if curr != req {
			continue
		}
		if prev == nil {
			c.head = curr.next
		} else {
			prev.next = curr.next
		}
		if c.tail == curr {
			c.tail = prev
		}
		curr.next = nil
		return
	}
}

// Pending returns the number of requests waiting for reply.
func (c *Client) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	n := 0
	for curr := c.head; curr != nil; curr = curr.next {
		n++
	}
	return n
}

// HandleFrame resolves the oldest pending request for the frame's command.
// It reports whether the frame was a reply to a pending request.
func (c *Client) HandleFrame(fr frame.Frame) bool {
	cmd := Command(fr.ID)
	c.lock.Lock()
	head := c.head
	curr := c.head
	for ; curr != nil; curr = curr.next {
		if curr.cmd == cmd {
			if c.head = curr.next; c.head == nil {
				c.tail = nil
			}
			curr.next = nil
			break
		}
	}
	if curr == nil {
		c.lock.Unlock()
		return false
	}
	c.lock.Unlock()
	for head != curr {
		next := head.next
		head.next = nil
		head.resultCh <- Result{Err: ErrNoReply}
		head = next
	}
	curr.resultCh <- Result{Frame: fr}
	return true
}
