// Package pubsub implements a simple broadcast broker used to fan out
// branch and key watch notifications to subscribed sessions, grounded
// on the broker idiom used for registry events in the teacher repo
// (consensus/tendermint/registry), backed by an unbounded channel so a
// slow subscriber never blocks the backend mutation path.
package pubsub

import (
	"github.com/eapache/channels"
)

// Subscription is a single subscriber's view of a Broker.
type Subscription struct {
	broker *Broker
	ch     *channels.InfiniteChannel
}

// Out returns the channel on which this subscription receives
// broadcast values.
func (s *Subscription) Out() <-chan interface{} {
	return s.ch.Out()
}

// Close unsubscribes and releases the underlying channel.
func (s *Subscription) Close() {
	s.broker.remove(s)
	s.ch.Close()
}

// Broker fans out Broadcast values to every live Subscription.
type Broker struct {
	subscribeCh   chan *Subscription
	unsubscribeCh chan *Subscription
	broadcastCh   chan interface{}
	quitCh        chan struct{}
}

// NewBroker creates a new broker and starts its dispatch goroutine.
func NewBroker() *Broker {
	b := &Broker{
		subscribeCh:   make(chan *Subscription),
		unsubscribeCh: make(chan *Subscription),
		broadcastCh:   make(chan interface{}),
		quitCh:        make(chan struct{}),
	}
	go b.worker()
	return b
}

// Subscribe registers a new subscription.
func (b *Broker) Subscribe() *Subscription {
	sub := &Subscription{broker: b, ch: channels.NewInfiniteChannel()}
	b.subscribeCh <- sub
	return sub
}

func (b *Broker) remove(sub *Subscription) {
	select {
	case b.unsubscribeCh <- sub:
	case <-b.quitCh:
	}
}

// Broadcast sends value to every current subscriber.
func (b *Broker) Broadcast(value interface{}) {
	select {
	case b.broadcastCh <- value:
	case <-b.quitCh:
	}
}

// Close stops the broker and closes every live subscription.
func (b *Broker) Close() {
	close(b.quitCh)
}

func (b *Broker) worker() {
	subs := make(map[*Subscription]struct{})
	for {
		select {
		case sub := <-b.subscribeCh:
			subs[sub] = struct{}{}
		case sub := <-b.unsubscribeCh:
			delete(subs, sub)
		case v := <-b.broadcastCh:
			for sub := range subs {
				sub.ch.In() <- v
			}
		case <-b.quitCh:
			for sub := range subs {
				sub.ch.Close()
			}
			return
		}
	}
}
