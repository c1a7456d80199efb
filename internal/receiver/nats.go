// ABOUTME: NATS PCM receiver
// ABOUTME: Subscribes to shairport.<name>.> for start headers, audio payloads and stop
package receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConnection is the part of *nats.Conn the receiver uses
type NATSConnection interface {
	Subscribe(subject string, cb nats.MsgHandler) (*nats.Subscription, error)
	Close()
}

// NATSConfig holds NATS receiver configuration
type NATSConfig struct {
	// URL of the NATS server, e.g. nats://localhost:4222
	URL string

	// Name is the subject token identifying this bridge
	Name string
}

// Subject returns the subject prefix for name
func Subject(name string) string {
	return "shairport." + name
}

// NATSReceiver receives PCM from NATS. Messages on <prefix>.start carry a
// JSON header, <prefix>.pcm carries audio and <prefix>.stop ends the stream.
type NATSReceiver struct {
	cfg   NATSConfig
	sink  Sink
	guard *Guard
	conn  NATSConnection

	mu   sync.Mutex
	sess *session
}

// NewNATSReceiver connects to the NATS server, retrying a few times
func NewNATSReceiver(cfg NATSConfig, sink Sink, guard *Guard) (*NATSReceiver, error) {
	var nc *nats.Conn
	var err error

	for i := 0; i < 5; i++ {
		nc, err = nats.Connect(cfg.URL, nats.Name("shairport-"+cfg.Name))
		if err == nil {
			break
		}
		log.Printf("Failed to connect to NATS (attempt %d/5): %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS after 5 attempts: %w", err)
	}

	log.Printf("Connected to NATS at %s", cfg.URL)
	return NewNATSReceiverWithConnection(cfg, sink, guard, nc), nil
}

// NewNATSReceiverWithConnection creates a receiver on an existing connection
func NewNATSReceiverWithConnection(cfg NATSConfig, sink Sink, guard *Guard, conn NATSConnection) *NATSReceiver {
	if guard == nil {
		guard = &Guard{}
	}
	return &NATSReceiver{cfg: cfg, sink: sink, guard: guard, conn: conn}
}

// Run subscribes and handles messages until ctx is done. One wildcard
// subscription keeps start, audio and stop in publish order.
func (r *NATSReceiver) Run(ctx context.Context) error {
	subject := Subject(r.cfg.Name) + ".>"
	sub, err := r.conn.Subscribe(subject, r.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	log.Printf("Subscribed to %s", subject)

	<-ctx.Done()

	if sub != nil && sub.IsValid() {
		sub.Unsubscribe()
	}
	r.endSession(context.Background())
	r.conn.Close()
	log.Printf("NATS connection closed")
	return nil
}

func (r *NATSReceiver) handleMessage(msg *nats.Msg) {
	kind := msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:]

	switch kind {
	case "start":
		var h Header
		if err := json.Unmarshal(msg.Data, &h); err != nil {
			log.Printf("Failed to unmarshal stream header on %s: %v", msg.Subject, err)
			return
		}
		r.startSession(h, msg.Subject)

	case "pcm":
		r.mu.Lock()
		sess := r.sess
		r.mu.Unlock()
		if sess == nil {
			return
		}
		if err := sess.feed(msg.Data); err != nil {
			log.Printf("Stream %s: %v", sess.id, err)
			r.endSession(context.Background())
		}

	case "stop":
		r.endSession(context.Background())

	default:
		log.Printf("Ignoring message on %s", msg.Subject)
	}
}

func (r *NATSReceiver) startSession(h Header, origin string) {
	r.endSession(context.Background())

	sess, err := openSession(r.sink, r.guard, "nats:"+origin, h)
	if err != nil {
		log.Printf("Rejecting NATS stream: %v", err)
		return
	}

	r.mu.Lock()
	r.sess = sess
	r.mu.Unlock()
}

func (r *NATSReceiver) endSession(ctx context.Context) {
	r.mu.Lock()
	sess := r.sess
	r.sess = nil
	r.mu.Unlock()

	if sess != nil {
		sess.close(ctx)
	}
}

// Active reports whether a NATS stream is playing
func (r *NATSReceiver) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sess != nil
}
