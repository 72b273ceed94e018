package mediastream

import (
	"log"
	"net"
	"sync"

	"github.com/arzzra/rtpmedia/pkg/rtp"
)

// StreamIndex identifies a MediaStream within its owning session for event
// attribution (§6: "Each event carries the stream index").
type StreamIndex int

// RtpEventKind enumerates the consumer-facing notifications a MediaStream
// raises (§6).
type RtpEventKind int

const (
	EventTimeout RtpEventKind = iota
	EventSendReport
	EventReceiveReport
	EventRtpPacketReceived
	EventRtpEvent
	EventHeaderExtensionReceived
	EventCloseStateChanged
	EventAudioFormatsNegotiated
	EventVideoFormatsNegotiated
	EventVideoFrameReceived
	EventTextFormatsNegotiated
)

// TimeoutPayload accompanies EventTimeout.
type TimeoutPayload struct{}

// ReportPayload accompanies EventSendReport/EventReceiveReport.
type ReportPayload struct {
	SenderReport   *rtp.SenderReport
	ReceiverReport *rtp.ReceiverReport
}

// RtpPacketPayload accompanies EventRtpPacketReceived.
type RtpPacketPayload struct {
	Packet *rtp.Packet
	Remote net.Addr
}

// RtpEventPayload accompanies EventRtpEvent (DTMF).
type RtpEventPayload struct {
	Event rtp.Event
}

// HeaderExtensionPayload accompanies EventHeaderExtensionReceived.
type HeaderExtensionPayload struct {
	URI   string
	Raw   rtp.RawExtension
}

// CloseStatePayload accompanies EventCloseStateChanged.
type CloseStatePayload struct {
	Closed bool
}

// VideoFramePayload accompanies EventVideoFrameReceived.
type VideoFramePayload struct {
	Frame []byte
}

// FormatsNegotiatedPayload accompanies the *FormatsNegotiated events.
type FormatsNegotiatedPayload struct {
	Capabilities []Capability
}

// Event is the envelope delivered to every subscriber.
type Event struct {
	Kind        RtpEventKind
	StreamIndex StreamIndex
	Payload     interface{}
}

// Handler receives events. A panicking handler does not interrupt delivery
// to the remaining subscribers nor the receive loop driving it; handlers run
// synchronously, so a slow one delays both.
type Handler func(Event)

// Registry is a subscription registry replacing the multicast-delegate
// event model: subscribers register a Handler per kind and Fire dispatches
// to all of them, recovering from any handler panic so "fire and continue"
// holds (§9).
type Registry struct {
	mu       sync.RWMutex
	handlers map[RtpEventKind][]Handler
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[RtpEventKind][]Handler)}
}

// On subscribes fn to events of kind.
func (r *Registry) On(kind RtpEventKind, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = append(r.handlers[kind], fn)
}

// Fire dispatches ev to every subscriber of ev.Kind, synchronously, in
// registration order. Each handler runs under its own recover so a
// panicking subscriber cannot break the receive loop or stop its siblings
// from running; a handler that blocks holds up the ones after it.
func (r *Registry) Fire(ev Event) {
	r.mu.RLock()
	handlers := r.handlers[ev.Kind]
	r.mu.RUnlock()

	for _, h := range handlers {
		func(h Handler) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("mediastream: event handler panicked for kind %v: %v", ev.Kind, rec)
				}
			}()
			h(ev)
		}(h)
	}
}
