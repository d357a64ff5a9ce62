package cascade

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Engine owns the zone registry and ties the lifecycle FSM (fsm.go,
// fsm_states.go), the scheduler (scheduler.go), persistence
// (persistence.go), and the Notifier (events.go) together into the
// running system spec §6 describes as the "external interface". It plays
// the role the teacher's RefreshEngine/Zones global pair play together,
// but as an owned value rather than package-level state (global.go),
// since Cascade is meant to be embeddable and testable without a single
// process-wide zone set.
type Engine struct {
	zones  cmap.ConcurrentMap[string, *Zone]
	store  ZoneStore
	signer Signer
	notify *Notifier

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEngine wires an Engine around a persistence backend and a signer.
// Passing PassThroughSigner{} as signer is valid for zones that never
// enable OnlineSigning.
func NewEngine(store ZoneStore, signer Signer) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		zones:  cmap.New[*Zone](),
		store:  store,
		signer: signer,
		notify: NewNotifier(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run starts the Engine's background machinery: the 1-second scheduler
// tick (scheduler.go's TickAll, descended from RefreshEngine's ticker
// loop in refreshengine.go) and the Notifier's drain loop. It blocks
// until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	stop := make(chan struct{})
	go e.notify.Run(stop)
	defer close(stop)

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("cascade: engine: terminating due to context cancelled")
			return
		case <-ticker.C:
			TickAll(e.zones, e.onRefreshDue)
		}
	}
}

// Close cancels every zone's in-flight background task and closes the
// persistence backend. Intended for graceful shutdown and for tests.
func (e *Engine) Close() error {
	e.cancel()
	for _, z := range e.zones.Items() {
		z.task.abort()
	}
	return e.store.Close()
}

// AddZone registers a new zone in Passive state, optionally restoring a
// previously-persisted authoritative instance (spec §6: zones are
// "always restorable to Passive plus the authoritative instance").
func (e *Engine) AddZone(conf ZoneConfig) (*Zone, error) {
	if _, exists := e.zones.Get(conf.Apex); exists {
		return nil, fmt.Errorf("cascade: engine: zone %s already registered", conf.Apex)
	}
	z := NewZone(conf)
	z.notify = func(ev ZoneEvent) { e.handleEvent(z, ev) }

	unsigned, signed, err := e.store.LoadInstance(conf.Apex)
	if err != nil {
		return nil, fmt.Errorf("cascade: engine: loading %s: %w", conf.Apex, err)
	}
	z.restoreAuthoritative(unsigned, signed)
	if diffs, derr := e.store.LoadDiffChain(conf.Apex, DefaultDiffChainDepth); derr == nil {
		z.diffChain = diffs
	}

	e.zones.Set(conf.Apex, z)

	if unsigned.SOA != nil {
		z.ScheduleRefresh(unsigned.SOA.Refresh)
	}
	return z, nil
}

// RemoveZone drains a zone: its background task is cancelled, it is
// deregistered, and no further refreshes fire. Spec §4.2's Draining
// phase (outside the 24-state lifecycle proper) is realized here rather
// than as an fsmState, since removal is a registry-level operation that
// can interrupt any lifecycle state, not a state the FSM transitions
// into and out of on its own.
func (e *Engine) RemoveZone(apex string) error {
	z, ok := e.zones.Get(apex)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownZone, apex)
	}
	z.task.abort()
	z.task.wait()
	e.zones.Remove(apex)
	return nil
}

// Zone looks up a registered zone by apex.
func (e *Engine) Zone(apex string) (*Zone, error) {
	z, ok := e.zones.Get(apex)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownZone, apex)
	}
	return z, nil
}

// EnqueueRefresh is the external entry point for spec §6's
// enqueue_refresh(zone, reload): a NOTIFY handler or the HTTP control
// plane calls this; the actual work happens on the next scheduler tick,
// for a reload as for a plain refresh.
func (e *Engine) EnqueueRefresh(apex string, reload bool) error {
	z, err := e.Zone(apex)
	if err != nil {
		return err
	}
	z.EnqueueRefresh(reload)
	return nil
}

// SetSource changes where a zone is loaded from and immediately
// triggers a refresh (spec §6's set_source(zone, source)).
func (e *Engine) SetSource(apex string, src Source) error {
	z, err := e.Zone(apex)
	if err != nil {
		return err
	}
	z.mu.Lock()
	z.conf.Source = src
	z.mu.Unlock()
	return e.EnqueueRefresh(apex, true)
}

// MarkApproved is the external entry point for spec §6's
// mark_approved(zone, stage).
func (e *Engine) MarkApproved(apex string, stage ReviewStage) error {
	z, err := e.Zone(apex)
	if err != nil {
		return err
	}
	switch stage {
	case StageUnsigned:
		p, err := z.MarkApprovedUnsigned()
		if err != nil {
			return err
		}
		e.spawnPersist(z, p, e.afterPersistUnsigned)
	case StageSigned:
		p, err := z.MarkApprovedSigned()
		if err != nil {
			return err
		}
		e.spawnPersist(z, p, e.afterPersistSigned)
	case StageWhole:
		p, err := z.MarkApprovedWhole()
		if err != nil {
			return err
		}
		e.spawnPersist(z, p, e.afterPersistSigned)
	case StageResign:
		p, err := z.MarkApprovedResign()
		if err != nil {
			return err
		}
		e.spawnPersist(z, p, e.afterResignPersist)
	default:
		return fmt.Errorf("cascade: engine: unknown review stage %v", stage)
	}
	return nil
}

// ReviewStage names which pending review mark_approved targets (spec §6).
type ReviewStage uint8

const (
	StageUnsigned ReviewStage = iota
	StageSigned
	StageWhole
	StageResign
)

func (e *Engine) spawnPersist(z *Zone, p *Persister, after func(*Zone, *Persister, Persisted, error)) {
	z.spawn(e.ctx, func(ctx context.Context) {
		res, err := p.Persist(e.store, z.Apex)
		after(z, p, res, err)
	})
}

func (e *Engine) afterPersistUnsigned(z *Zone, p *Persister, res Persisted, err error) {
	sb, ferr := z.PersistUnsignedDone(err == nil, err)
	if ferr != nil {
		z.fireEvent(ZoneEvent{Apex: z.Apex, Kind: EventRefreshFailed, Err: ferr})
		return
	}
	z.pushDiff(p.Diff())
	if sb == nil {
		// Signing disabled: the unsigned instance is already on its way
		// to Switching; nothing further for this goroutine to do.
		z.fireEvent(ZoneEvent{Apex: z.Apex, Kind: EventUnsignedUpdated, Serial: res.Serial})
		if err := e.completeSwitch(z); err != nil {
			log.Printf("cascade: engine: %s: switch: %v", z.Apex, err)
		}
		return
	}
	z.fireEvent(ZoneEvent{Apex: z.Apex, Kind: EventUnsignedUpdated, Serial: res.Serial})
	e.spawnSign(z, sb)
}

func (e *Engine) spawnSign(z *Zone, sb *SignedZoneBuilder) {
	z.spawn(e.ctx, func(ctx context.Context) {
		u := z.currentUnsignedUpcoming()
		soa, err := u.SOA()
		if err != nil {
			z.fireEvent(ZoneEvent{Apex: z.Apex, Kind: EventRefreshFailed, Err: err})
			return
		}
		newSOA, signedRecs, err := e.signer.Sign(z.Apex, soa, u.Records())
		if err != nil {
			log.Printf("cascade: engine: %s: signing failed: %v", z.Apex, err)
			return
		}
		sortRecords(signedRecs)
		signedRecs = dedupSorted(signedRecs)
		sb.SetSOA(newSOA)
		sb.BuildRecords(signedRecs)
		if _, err := z.FinishSigned(sb); err != nil {
			log.Printf("cascade: engine: %s: finish signed: %v", z.Apex, err)
		}
	})
}

func (e *Engine) afterPersistSigned(z *Zone, p *Persister, res Persisted, err error) {
	v, ferr := z.PersistSignedDone(err == nil, err)
	if ferr != nil {
		z.fireEvent(ZoneEvent{Apex: z.Apex, Kind: EventRefreshFailed, Err: ferr})
		return
	}
	_ = v
	z.pushDiff(p.Diff())
	z.fireEvent(ZoneEvent{Apex: z.Apex, Kind: EventSignedUpdated, Serial: res.Serial})
	if err := e.completeSwitch(z); err != nil {
		log.Printf("cascade: engine: %s: switch: %v", z.Apex, err)
	}
}

func (e *Engine) afterResignPersist(z *Zone, p *Persister, res Persisted, err error) {
	v, ferr := z.ResignPersistDone(err == nil, err)
	if ferr != nil {
		z.fireEvent(ZoneEvent{Apex: z.Apex, Kind: EventRefreshFailed, Err: ferr})
		return
	}
	_ = v
	z.pushDiff(p.Diff())
	z.fireEvent(ZoneEvent{Apex: z.Apex, Kind: EventSignedUpdated, Serial: res.Serial})
	if _, err := z.ResignSwitch(); err != nil {
		log.Printf("cascade: engine: %s: resign switch: %v", z.Apex, err)
		return
	}
	e.completeClean(z, true)
}

// completeSwitch drives Switch -> ReleaseViewer -> Clean -> MarkComplete
// straight through. Cascade does not currently track downstream-viewer
// reference counts (see DESIGN.md's note on Viewer lifetime), so
// ReleaseViewer is called immediately after Switch rather than waiting
// for an external signal.
func (e *Engine) completeSwitch(z *Zone) error {
	if _, err := z.Switch(); err != nil {
		return err
	}
	e.completeClean(z, false)
	return nil
}

func (e *Engine) completeClean(z *Zone, resign bool) {
	z.spawn(e.ctx, func(ctx context.Context) {
		if resign {
			c, err := z.ResignReleaseViewer()
			if err != nil {
				log.Printf("cascade: engine: %s: release viewer: %v", z.Apex, err)
				return
			}
			cleaned := c.Clean()
			if err := z.MarkComplete(cleaned); err != nil {
				log.Printf("cascade: engine: %s: mark complete: %v", z.Apex, err)
			}
			return
		}
		c, err := z.ReleaseViewer()
		if err != nil {
			log.Printf("cascade: engine: %s: release viewer: %v", z.Apex, err)
			return
		}
		cleaned := c.Clean()
		if err := z.MarkComplete(cleaned); err != nil {
			log.Printf("cascade: engine: %s: mark complete: %v", z.Apex, err)
		}
		z.fireEvent(ZoneEvent{Apex: z.Apex, Kind: EventIdle})
	})
}

// onRefreshDue is TickAll's callback: load from the zone's Source and
// drive the FSM through StartLoad/FinishUnsigned automatically. A failed
// refresh arms the RETRY cadence instead of REFRESH (spec §7), using the
// authoritative SOA's Retry value (DefaultRefreshClamp when there is no
// SOA). A soft halt left by an earlier failure is cleared before the
// attempt so the retry can run; a hard halt is never downgraded.
func (e *Engine) onRefreshDue(apex string, z *Zone, reload bool) {
	z.spawn(e.ctx, func(ctx context.Context) {
		z.beginRefreshInFlight(reload)
		defer z.endRefreshInFlight()
		if errors.Is(z.haltedError(), ErrSoftHalted) {
			z.ClearError()
		}
		if err := e.refreshOnce(z, reload); err != nil {
			if !errors.Is(err, ErrHardHalted) {
				z.SetError(false, "refresh: %v", err)
			}
			z.fireEvent(ZoneEvent{Apex: apex, Kind: EventRefreshFailed, Err: err})
			retry := uint32(DefaultRefreshClamp)
			if soa, serr := newReader(z.store, z.currentAuthoritativeUnsigned()).SOA(); serr == nil {
				retry = soa.Retry
			}
			z.ScheduleRetry(retry)
			return
		}
		z.mu.Lock()
		z.RefreshCount++
		z.mu.Unlock()
		z.ClearError()
	})
}

func (e *Engine) refreshOnce(z *Zone, reload bool) error {
	b, err := z.StartLoad()
	if err != nil {
		return err
	}
	next, err := TransferFull(z.Apex, z.source())
	if err != nil {
		z.GiveUp()
		return err
	}
	if next.SOA != nil {
		b.SetSOA(*next.SOA)
	}
	b.BuildRecords(next.Records)
	b.ClearSigned()

	rv, err := z.FinishUnsigned(b)
	if err != nil {
		return err
	}
	if next.SOA != nil {
		z.ScheduleRefresh(next.SOA.Refresh)
	}
	_ = rv
	return nil
}

func (e *Engine) handleEvent(z *Zone, ev ZoneEvent) {
	log.Printf("cascade: event: %s", formatEvent(ev))
	if ev.Kind == EventSignedUpdated {
		e.notify.Enqueue(z.Apex, z.downstreams())
	}
}
