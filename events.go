package cascade

import (
	"fmt"
	"log"

	"github.com/miekg/dns"
)

// ZoneEvent is delivered to a Zone's notify callback (set by the Engine
// at registration time) whenever a transition completes that downstream
// subsystems care about: a new instance went live, a refresh failed, the
// zone went idle again. Modeled on the teacher's NotifyRequest
// (notifier.go), but carrying a closed set of event kinds instead of a
// raw RR type, since this package's state machine already knows exactly
// which kind of update just happened.
type ZoneEvent struct {
	Apex   string
	Kind   ZoneEventKind
	Serial uint32
	Err    error
}

type ZoneEventKind uint8

const (
	EventUnsignedUpdated ZoneEventKind = iota
	EventSignedUpdated
	EventIdle
	EventRefreshFailed
	EventHalted
)

func (k ZoneEventKind) String() string {
	switch k {
	case EventUnsignedUpdated:
		return "UnsignedUpdated"
	case EventSignedUpdated:
		return "SignedUpdated"
	case EventIdle:
		return "Idle"
	case EventRefreshFailed:
		return "RefreshFailed"
	case EventHalted:
		return "Halted"
	default:
		return "?"
	}
}

// Notifier fans ZoneEvents for EventSignedUpdated out to a zone's
// configured downstream secondaries as DNS NOTIFY messages, the same
// responsibility as the teacher's Notifier goroutine (notifier.go)
// draining a shared notifyreqQ. Cascade keeps one Notifier per Engine
// rather than a single global one, since each Engine owns its own zone
// registry.
type Notifier struct {
	reqQ chan notifyRequest
}

type notifyRequest struct {
	apex    string
	targets []string
}

func NewNotifier() *Notifier {
	return &Notifier{reqQ: make(chan notifyRequest, 64)}
}

// Enqueue schedules a NOTIFY fan-out; it never blocks the caller beyond
// the channel's buffer, matching the teacher's NotifyRequest queue.
func (n *Notifier) Enqueue(apex string, targets []string) {
	if len(targets) == 0 {
		return
	}
	select {
	case n.reqQ <- notifyRequest{apex: apex, targets: targets}:
	default:
		log.Printf("cascade: notifier: queue full, dropping NOTIFY fan-out for %s", apex)
	}
}

// Run drains the queue until stop is closed. One goroutine; NOTIFYs for
// a single zone are therefore serialized, which is sufficient since a
// zone can only complete one Switch at a time.
func (n *Notifier) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case req, ok := <-n.reqQ:
			if !ok {
				return
			}
			sendNotify(req.apex, req.targets)
		}
	}
}

// sendNotify is the direct descendant of ZoneData.SendNotify
// (notifier.go): send a NOTIFY(SOA) to each downstream in turn, stopping
// at the first that answers NOERROR.
func sendNotify(apex string, targets []string) {
	for _, dst := range targets {
		m := new(dns.Msg)
		m.SetNotify(dns.Fqdn(apex))
		res, err := dns.Exchange(m, dst)
		if err != nil {
			log.Printf("cascade: notify %s -> %s: %v", apex, dst, err)
			continue
		}
		if res.Rcode != dns.RcodeSuccess {
			log.Printf("cascade: notify %s -> %s: rcode %s", apex, dst, dns.RcodeToString[res.Rcode])
			continue
		}
		return
	}
	if len(targets) > 0 {
		log.Printf("cascade: notify %s: no downstream accepted the NOTIFY", apex)
	}
}

func formatEvent(ev ZoneEvent) string {
	if ev.Err != nil {
		return fmt.Sprintf("%s[%s]: %v", ev.Apex, ev.Kind, ev.Err)
	}
	return fmt.Sprintf("%s[%s]: serial=%d", ev.Apex, ev.Kind, ev.Serial)
}
