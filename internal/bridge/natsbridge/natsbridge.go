// Package natsbridge implements bridge.Transport over NATS request-reply,
// grounded on Chris-Alexander-Pop-go-hyperforge's notification service
// dependency on github.com/nats-io/nats.go. Subjects are named
// "routefabric.<peer>" — a peer here is the subject suffix a remote
// process's Serve listens on, which fits the publish dispatch discipline
// naturally since a NATS subject already fans out to every subscriber.
package natsbridge

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

const subjectPrefix = "routefabric."

// Transport is a nats.go-backed bridge.Transport.
type Transport struct {
	nc      *nats.Conn
	subject string // subject this process serves requests on
}

// New connects to url and prepares to serve requests on localSubject
// (the "peer" name other processes will Request against).
func New(url, localSubject string) (*Transport, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("natsbridge: connect: %w", err)
	}
	return &Transport{nc: nc, subject: localSubject}, nil
}

// Request implements bridge.Transport.
func (t *Transport) Request(ctx context.Context, peer string, envelope []byte) ([]byte, error) {
	msg, err := t.nc.RequestWithContext(ctx, subjectPrefix+peer, envelope)
	if err != nil {
		return nil, fmt.Errorf("natsbridge: request %s: %w", peer, err)
	}
	return msg.Data, nil
}

// Serve subscribes to this transport's local subject and answers every
// request with handle, until ctx is done.
func (t *Transport) Serve(ctx context.Context, handle func(ctx context.Context, envelope []byte) []byte) error {
	sub, err := t.nc.Subscribe(subjectPrefix+t.subject, func(msg *nats.Msg) {
		out := handle(ctx, msg.Data)
		if err := msg.Respond(out); err != nil {
			// Requester timed out or disconnected; nothing to recover.
			_ = err
		}
	})
	if err != nil {
		return fmt.Errorf("natsbridge: subscribe %s: %w", t.subject, err)
	}
	defer sub.Unsubscribe()

	<-ctx.Done()
	return ctx.Err()
}

// Close closes the underlying NATS connection without draining it first.
func (t *Transport) Close() error {
	t.nc.Close()
	return nil
}
