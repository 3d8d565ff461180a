package deconz

import "github.com/rs/zerolog"

// eventBufferSize bounds the unsolicited-event queue between the inbound
// router and the caller's EventSink: bounded, drop-if-full, with a
// warning logged on overflow rather than an unbounded queue.
const eventBufferSize = 64

type bufferedEvent struct {
	joined    *DeviceJoinedEvent
	announce  *DeviceAnnounceEvent
	leave     *DeviceLeaveEvent
	zcl       *ZclPayload
}

// eventBus decouples the inbound-router goroutine from a possibly slow
// EventSink: events are queued onto a bounded channel and delivered by a
// single consumer goroutine in arrival order. A full buffer drops the
// newest event and logs a warning rather than blocking the router.
type eventBus struct {
	sink  EventSink
	log   zerolog.Logger
	queue chan bufferedEvent
	done  chan struct{}
}

func newEventBus(sink EventSink, log zerolog.Logger) *eventBus {
	b := &eventBus{
		sink:  sink,
		log:   log.With().Str("component", "eventbus").Logger(),
		queue: make(chan bufferedEvent, eventBufferSize),
		done:  make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *eventBus) run() {
	defer close(b.done)
	for ev := range b.queue {
		switch {
		case ev.joined != nil:
			b.sink.DeviceJoined(*ev.joined)
		case ev.announce != nil:
			b.sink.DeviceAnnounce(*ev.announce)
		case ev.leave != nil:
			b.sink.DeviceLeave(*ev.leave)
		case ev.zcl != nil:
			b.sink.ZclPayload(*ev.zcl)
		}
	}
}

func (b *eventBus) offer(ev bufferedEvent) {
	select {
	case b.queue <- ev:
	default:
		b.log.Warn().Msg("deconz: event buffer full, dropping event")
	}
}

func (b *eventBus) DeviceJoined(e DeviceJoinedEvent)     { b.offer(bufferedEvent{joined: &e}) }
func (b *eventBus) DeviceAnnounce(e DeviceAnnounceEvent) { b.offer(bufferedEvent{announce: &e}) }
func (b *eventBus) DeviceLeave(e DeviceLeaveEvent)       { b.offer(bufferedEvent{leave: &e}) }
func (b *eventBus) ZclPayload(e ZclPayload)              { b.offer(bufferedEvent{zcl: &e}) }

func (b *eventBus) Close() {
	close(b.queue)
	<-b.done
}
