// file: internals/helpers/notify/notify.go
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
)

type Channel string

const (
	ChannelEmail Channel = "Email"
	ChannelSMS   Channel = "SMS"
	ChannelInApp Channel = "In-App"
	ChannelPush  Channel = "Push"
)

var AllChannels = []Channel{ChannelEmail, ChannelSMS, ChannelInApp, ChannelPush}

func ParseChannel(s string) (Channel, bool) {
	for _, c := range AllChannels {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

type Recipient struct {
	Name  string
	Email string
	Phone string
	Ref   string
}

type Message struct {
	Channel Channel
	To      Recipient
	Subject string
	Text    string
	HTML    string
}

// Sender delivers one message over one channel. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher routes a message to the sender registered for its channel.
type Dispatcher struct {
	mu      sync.RWMutex
	senders map[Channel]Sender
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{senders: map[Channel]Sender{}}
}

func (d *Dispatcher) Register(ch Channel, s Sender) *Dispatcher {
	d.mu.Lock()
	d.senders[ch] = s
	d.mu.Unlock()
	return d
}

func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	d.mu.RLock()
	s, ok := d.senders[msg.Channel]
	d.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no sender for channel %q", msg.Channel)
	}
	return s.Send(ctx, msg)
}

/* ===============================
   Outbox sender (log + memory)
=================================*/

// OutboxSender logs the message and keeps the latest ones in memory.
// Used for channels without a provider integration (SMS, In-App, Push).
type OutboxSender struct {
	mu    sync.Mutex
	items []Message
	limit int
}

func NewOutboxSender(limit int) *OutboxSender {
	if limit <= 0 {
		limit = 500
	}
	return &OutboxSender{limit: limit}
}

func (o *OutboxSender) Send(_ context.Context, msg Message) error {
	log.Printf("[NOTIFY] %s → %s <%s%s>: %s", msg.Channel, msg.To.Name, msg.To.Email, msg.To.Phone, msg.Subject)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, msg)
	if len(o.items) > o.limit {
		o.items = o.items[len(o.items)-o.limit:]
	}
	return nil
}

func (o *OutboxSender) Messages() []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Message(nil), o.items...)
}
