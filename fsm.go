package cascade

import "fmt"

// This file drives every lifecycle transition named in spec §4.2 through
// Zone.withState (zone.go). Each exported method corresponds to one
// operator- or engine-initiated event (start_load, finish, mark_approved,
// switch, ...); each returns the capability handle appropriate to the
// state it lands in, or an error if called from a state that does not
// accept that event. A transition attempted from the wrong state is not
// an FSM bug — it is a caller bug, reported as ErrBusy so the caller can
// decide whether to wait and retry.

func errWrongState(zone string, from fsmState, event string) error {
	return fmt.Errorf("%w: zone %s: %s is not valid from %s", ErrBusy, zone, event, from.stateName())
}

// StartLoad begins building a fresh unsigned-only instance (the
// split-review path). Valid only from Passive.
func (z *Zone) StartLoad() (*ZoneBuilder, error) {
	if err := z.haltedError(); err != nil {
		return nil, err
	}
	var b *ZoneBuilder
	err := z.withState(func(cur fsmState) (fsmState, error) {
		p, ok := cur.(passiveState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "start_load")
		}
		bu := otherUnsigned(p.curUnsigned)
		b = newZoneBuilder(z.store, z.Apex, bu, p.curSigned)
		return buildingUnsignedState{
			curUnsigned: p.curUnsigned, curSigned: p.curSigned,
			buildUnsigned: bu, buildSigned: p.curSigned,
			apex: z.Apex,
		}, nil
	})
	return b, err
}

// StartLoadWhole begins building a fresh unsigned+signed pair together
// (the pass-through signing path, gated on ZoneConfig.PassThroughSigning).
// Valid only from Passive.
func (z *Zone) StartLoadWhole() (*ZoneBuilder, error) {
	if err := z.haltedError(); err != nil {
		return nil, err
	}
	if !z.conf.PassThroughSigning {
		return nil, fmt.Errorf("cascade: zone %s: pass-through signing not enabled", z.Apex)
	}
	var b *ZoneBuilder
	err := z.withState(func(cur fsmState) (fsmState, error) {
		p, ok := cur.(passiveState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "start_load_whole")
		}
		bu := otherUnsigned(p.curUnsigned)
		bs := otherSigned(p.curSigned)
		b = newZoneBuilder(z.store, z.Apex, bu, bs)
		return buildingWholeState{
			curUnsigned: p.curUnsigned, curSigned: p.curSigned,
			buildUnsigned: bu, buildSigned: bs,
			apex: z.Apex,
		}, nil
	})
	return b, err
}

// FinishUnsigned commits the Builder's unsigned half and moves to
// PendingUnsignedReview. On validation failure the build slots are
// abandoned and the zone moves directly to Cleaning (give-up semantics),
// matching spec §4.2's "an invalid target instance never becomes visible
// to any reader".
func (z *Zone) FinishUnsigned(b *ZoneBuilder) (*Reviewer, error) {
	var rv *Reviewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(buildingUnsignedState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "finish_unsigned")
		}
		built, ferr := b.FinishUnsigned()
		if ferr != nil {
			bu, bs := s.buildUnsigned, s.buildSigned
			return cleaningState{
				curUnsigned: s.curUnsigned, curSigned: s.curSigned,
				retireUnsigned: &bu, retireSigned: &bs, apex: z.Apex,
			}, fmt.Errorf("%w: %v", ErrInconsistency, ferr)
		}
		_ = built
		prev := z.store.get(s.curUnsigned)
		next := z.store.get(s.buildUnsigned)
		diff := ComputeDiff(prev, next)
		rv = newReviewer(z.store, s.buildUnsigned, nil, diff)
		return pendingUnsignedReviewState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingUnsigned: s.buildUnsigned, diff: diff, apex: z.Apex,
		}, nil
	})
	return rv, err
}

// Finish commits both halves of a whole-review Builder and moves to
// PendingWholeReview.
func (z *Zone) Finish(b *ZoneBuilder) (*Reviewer, error) {
	var rv *Reviewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(buildingWholeState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "finish")
		}
		_, ferr := b.Finish()
		if ferr != nil {
			bu, bs := s.buildUnsigned, s.buildSigned
			return cleaningState{
				curUnsigned: s.curUnsigned, curSigned: s.curSigned,
				retireUnsigned: &bu, retireSigned: &bs, apex: z.Apex,
			}, fmt.Errorf("%w: %v", ErrInconsistency, ferr)
		}
		prevU := z.store.get(s.curUnsigned)
		nextU := z.store.get(s.buildUnsigned)
		diff := ComputeDiff(prevU, nextU)
		signed := s.buildSigned
		rv = newReviewer(z.store, s.buildUnsigned, &signed, diff)
		return pendingWholeReviewState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingUnsigned: s.buildUnsigned, upcomingSigned: s.buildSigned,
			diff: diff, apex: z.Apex,
		}, nil
	})
	return rv, err
}

// GiveUp abandons an in-progress Builder and moves to Cleaning. Valid
// from any Building* state; which build slots get cleaned depends on
// which Building variant called it.
func (z *Zone) GiveUp() (*ZoneCleaner, error) {
	var c *ZoneCleaner
	err := z.withState(func(cur fsmState) (fsmState, error) {
		switch s := cur.(type) {
		case buildingUnsignedState:
			bu := s.buildUnsigned
			c = newZoneCleaner(z.store, &bu, nil)
			return cleaningState{curUnsigned: s.curUnsigned, curSigned: s.curSigned, retireUnsigned: &bu, apex: z.Apex}, nil
		case buildingWholeState:
			bu, bs := s.buildUnsigned, s.buildSigned
			c = newZoneCleaner(z.store, &bu, &bs)
			return cleaningState{curUnsigned: s.curUnsigned, curSigned: s.curSigned, retireUnsigned: &bu, retireSigned: &bs, apex: z.Apex}, nil
		case buildingSignedState:
			bs := s.buildSigned
			c = newZoneCleaner(z.store, nil, &bs)
			return cleaningState{curUnsigned: s.curUnsigned, curSigned: s.curSigned, retireSigned: &bs, apex: z.Apex}, nil
		default:
			return nil, errWrongState(z.Apex, cur, "give_up")
		}
	})
	return c, err
}

// StartReviewUnsigned moves PendingUnsignedReview -> ReviewingUnsigned,
// returning a fresh Reviewer over the same slots.
func (z *Zone) StartReviewUnsigned() (*Reviewer, error) {
	var rv *Reviewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(pendingUnsignedReviewState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "start_review")
		}
		rv = newReviewer(z.store, s.upcomingUnsigned, nil, s.diff)
		return reviewingUnsignedState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingUnsigned: s.upcomingUnsigned, diff: s.diff, apex: z.Apex,
		}, nil
	})
	return rv, err
}

func (z *Zone) StartReviewWhole() (*Reviewer, error) {
	var rv *Reviewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(pendingWholeReviewState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "start_review")
		}
		signed := s.upcomingSigned
		rv = newReviewer(z.store, s.upcomingUnsigned, &signed, s.diff)
		return reviewingWholeState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingUnsigned: s.upcomingUnsigned, upcomingSigned: s.upcomingSigned,
			diff: s.diff, apex: z.Apex,
		}, nil
	})
	return rv, err
}

func (z *Zone) StartReviewSigned() (*Reviewer, error) {
	var rv *Reviewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(pendingSignedReviewState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "start_review")
		}
		signed := s.upcomingSigned
		rv = newReviewer(z.store, s.upcomingUnsigned, &signed, s.diff)
		return reviewingSignedState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingUnsigned: s.upcomingUnsigned, upcomingSigned: s.upcomingSigned,
			diff: s.diff, apex: z.Apex,
		}, nil
	})
	return rv, err
}

func (z *Zone) StartReviewResign() (*Reviewer, error) {
	var rv *Reviewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(resignPendingReviewState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "start_review")
		}
		signed := s.upcomingSigned
		rv = newReviewer(z.store, s.curUnsigned, &signed, s.diff)
		return resignReviewingState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingSigned: s.upcomingSigned, diff: s.diff, apex: z.Apex,
		}, nil
	})
	return rv, err
}

// MarkApprovedUnsigned moves ReviewingUnsigned -> PersistingUnsigned,
// returning a Persister for the engine's background persist task.
func (z *Zone) MarkApprovedUnsigned() (*Persister, error) {
	var p *Persister
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(reviewingUnsignedState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "mark_approved")
		}
		p = newPersister(z.store, s.upcomingUnsigned, nil, s.diff)
		return persistingUnsignedState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingUnsigned: s.upcomingUnsigned, diff: s.diff, apex: z.Apex,
		}, nil
	})
	return p, err
}

func (z *Zone) MarkApprovedWhole() (*Persister, error) {
	var p *Persister
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(reviewingWholeState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "mark_approved")
		}
		signed := s.upcomingSigned
		p = newPersister(z.store, s.upcomingUnsigned, &signed, s.diff)
		return persistingWholeState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingUnsigned: s.upcomingUnsigned, upcomingSigned: s.upcomingSigned,
			diff: s.diff, apex: z.Apex,
		}, nil
	})
	return p, err
}

func (z *Zone) MarkApprovedSigned() (*Persister, error) {
	var p *Persister
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(reviewingSignedState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "mark_approved")
		}
		signed := s.upcomingSigned
		p = newPersister(z.store, s.upcomingUnsigned, &signed, s.diff)
		return persistingSignedState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingUnsigned: s.upcomingUnsigned, upcomingSigned: s.upcomingSigned,
			diff: s.diff, apex: z.Apex,
		}, nil
	})
	return p, err
}

func (z *Zone) MarkApprovedResign() (*Persister, error) {
	var p *Persister
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(resignReviewingState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "mark_approved")
		}
		signed := s.upcomingSigned
		p = newPersister(z.store, s.curUnsigned, &signed, s.diff)
		return resignPersistingState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingSigned: s.upcomingSigned, diff: s.diff, apex: z.Apex,
		}, nil
	})
	return p, err
}

// PersistUnsignedDone is the background task's callback after
// Persister.Persist returns for the PersistingUnsigned state. On success,
// if the zone signs online it proceeds to BuildingSigned; otherwise it
// promotes the unsigned slot alone via SwitchingUnsignedOnly (spec §4.2's
// "re-enter Building for signing OR directly to Switching"). On failure
// it returns to ReviewingUnsigned so the operator can retry (spec §7).
func (z *Zone) PersistUnsignedDone(ok bool, perr error) (*SignedZoneBuilder, error) {
	var sb *SignedZoneBuilder
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, cok := cur.(persistingUnsignedState)
		if !cok {
			return nil, errWrongState(z.Apex, cur, "persist_done")
		}
		if !ok {
			return reviewingUnsignedState{
				curUnsigned: s.curUnsigned, curSigned: s.curSigned,
				upcomingUnsigned: s.upcomingUnsigned, diff: s.diff, apex: z.Apex,
			}, fmt.Errorf("%w: %v", ErrPersistFailure, perr)
		}
		if z.conf.OnlineSigning {
			bs := otherSigned(s.curSigned)
			sb = newSignedZoneBuilder(z.store, z.Apex, bs)
			return buildingSignedState{
				curUnsigned: s.curUnsigned, curSigned: s.curSigned,
				upcomingUnsigned: s.upcomingUnsigned, buildSigned: bs, apex: z.Apex,
			}, nil
		}
		return switchingUnsignedOnlyState{
			newUnsigned: s.upcomingUnsigned, curSigned: s.curSigned,
			retireUnsigned: s.curUnsigned, apex: z.Apex,
		}, nil
	})
	return sb, err
}

// FinishSigned commits the signed half built atop an already-persisted
// unsigned instance and moves to PendingSignedReview.
func (z *Zone) FinishSigned(b *SignedZoneBuilder) (*Reviewer, error) {
	var rv *Reviewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(buildingSignedState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "finish")
		}
		if _, ferr := b.Finish(); ferr != nil {
			bs := s.buildSigned
			return cleaningState{curUnsigned: s.curUnsigned, curSigned: s.curSigned, retireSigned: &bs, apex: z.Apex},
				fmt.Errorf("%w: %v", ErrInconsistency, ferr)
		}
		prevS := z.store.get(s.curSigned)
		nextS := z.store.get(s.buildSigned)
		diff := ComputeDiff(prevS, nextS)
		signed := s.buildSigned
		rv = newReviewer(z.store, s.upcomingUnsigned, &signed, diff)
		return pendingSignedReviewState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingUnsigned: s.upcomingUnsigned, upcomingSigned: s.buildSigned,
			diff: diff, apex: z.Apex,
		}, nil
	})
	return rv, err
}

// PersistSignedDone handles the PersistingSigned and PersistingWhole success
// path: both slots move to Switching, and failure returns to Reviewing.
func (z *Zone) PersistSignedDone(ok bool, perr error) (*Viewer, error) {
	var v *Viewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		switch s := cur.(type) {
		case persistingSignedState:
			if !ok {
				return reviewingSignedState{
					curUnsigned: s.curUnsigned, curSigned: s.curSigned,
					upcomingUnsigned: s.upcomingUnsigned, upcomingSigned: s.upcomingSigned,
					diff: s.diff, apex: z.Apex,
				}, fmt.Errorf("%w: %v", ErrPersistFailure, perr)
			}
			v = newViewer(z.store, s.upcomingUnsigned, s.upcomingSigned)
			return switchingState{
				newUnsigned: s.upcomingUnsigned, newSigned: s.upcomingSigned,
				retireUnsigned: s.curUnsigned, retireSigned: s.curSigned, apex: z.Apex,
			}, nil
		case persistingWholeState:
			if !ok {
				return reviewingWholeState{
					curUnsigned: s.curUnsigned, curSigned: s.curSigned,
					upcomingUnsigned: s.upcomingUnsigned, upcomingSigned: s.upcomingSigned,
					diff: s.diff, apex: z.Apex,
				}, fmt.Errorf("%w: %v", ErrPersistFailure, perr)
			}
			v = newViewer(z.store, s.upcomingUnsigned, s.upcomingSigned)
			return switchingState{
				newUnsigned: s.upcomingUnsigned, newSigned: s.upcomingSigned,
				retireUnsigned: s.curUnsigned, retireSigned: s.curSigned, apex: z.Apex,
			}, nil
		default:
			return nil, errWrongState(z.Apex, cur, "persist_done")
		}
	})
	return v, err
}

// Switch is the no-op completion of SwitchingUnsignedOnly/Switching: the
// promotion already happened when the state value was constructed (its
// newUnsigned/newSigned fields already name the new slots by the time
// PersistUnsignedDone or PersistSignedDone issued it); Switch's job is to hand back the installed
// Viewer and move on to PendingClean so the retired slots can eventually
// be reclaimed once downstream consumers drop their old Viewer.
func (z *Zone) Switch() (*Viewer, error) {
	var v *Viewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		switch s := cur.(type) {
		case switchingState:
			v = newViewer(z.store, s.newUnsigned, s.newSigned)
			ru, rs := s.retireUnsigned, s.retireSigned
			return pendingCleanState{
				curUnsigned: s.newUnsigned, curSigned: s.newSigned,
				retireUnsigned: &ru, retireSigned: &rs, apex: z.Apex,
			}, nil
		case switchingUnsignedOnlyState:
			v = newViewer(z.store, s.newUnsigned, s.curSigned)
			ru := s.retireUnsigned
			return pendingCleanState{
				curUnsigned: s.newUnsigned, curSigned: s.curSigned,
				retireUnsigned: &ru, apex: z.Apex,
			}, nil
		default:
			return nil, errWrongState(z.Apex, cur, "switch")
		}
	})
	return v, err
}

// ResignSwitch is the Resign family's equivalent of Switch.
func (z *Zone) ResignSwitch() (*Viewer, error) {
	var v *Viewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(resignSwitchingState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "switch")
		}
		v = newViewer(z.store, s.curUnsigned, s.newSigned)
		return resignPendingCleanState{
			curUnsigned: s.curUnsigned, curSigned: s.newSigned,
			retireSigned: s.retireSigned, apex: z.Apex,
		}, nil
	})
	return v, err
}

// ResignPersistDone is the Resign family's PersistDone.
func (z *Zone) ResignPersistDone(ok bool, perr error) (*Viewer, error) {
	var v *Viewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, cok := cur.(resignPersistingState)
		if !cok {
			return nil, errWrongState(z.Apex, cur, "persist_done")
		}
		if !ok {
			return resignReviewingState{
				curUnsigned: s.curUnsigned, curSigned: s.curSigned,
				upcomingSigned: s.upcomingSigned, diff: s.diff, apex: z.Apex,
			}, fmt.Errorf("%w: %v", ErrPersistFailure, perr)
		}
		v = newViewer(z.store, s.curUnsigned, s.upcomingSigned)
		return resignSwitchingState{
			curUnsigned: s.curUnsigned, newSigned: s.upcomingSigned,
			retireSigned: s.curSigned, apex: z.Apex,
		}, nil
	})
	return v, err
}

// ReleaseViewer signals that downstream consumers have dropped the
// superseded Viewer, allowing a Cleaner to be issued for the retired
// slot(s) (invariant 3, spec §4.2).
func (z *Zone) ReleaseViewer() (*ZoneCleaner, error) {
	var c *ZoneCleaner
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(pendingCleanState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "release_viewer")
		}
		c = newZoneCleaner(z.store, s.retireUnsigned, s.retireSigned)
		return cleaningState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			retireUnsigned: s.retireUnsigned, retireSigned: s.retireSigned, apex: z.Apex,
		}, nil
	})
	return c, err
}

func (z *Zone) ResignReleaseViewer() (*SignedZoneCleaner, error) {
	var c *SignedZoneCleaner
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(resignPendingCleanState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "release_viewer")
		}
		c = newSignedZoneCleaner(z.store, s.retireSigned)
		return resignCleaningState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			retireSigned: s.retireSigned, apex: z.Apex,
		}, nil
	})
	return c, err
}

// MarkComplete finishes a Cleaning/ResignCleaning/give-up Cleaning phase
// and returns the zone to Passive.
func (z *Zone) MarkComplete(Cleaned) error {
	return z.withState(func(cur fsmState) (fsmState, error) {
		switch s := cur.(type) {
		case cleaningState:
			return passiveState{curUnsigned: s.curUnsigned, curSigned: s.curSigned}, nil
		case resignCleaningState:
			return passiveState{curUnsigned: s.curUnsigned, curSigned: s.curSigned}, nil
		default:
			return nil, errWrongState(z.Apex, cur, "mark_complete")
		}
	})
}

// StartResign begins re-signing the current authoritative instance in
// place. Valid only from Passive, and only when online signing is
// enabled for this zone.
func (z *Zone) StartResign() (*SignedZoneBuilder, error) {
	if err := z.haltedError(); err != nil {
		return nil, err
	}
	if !z.conf.OnlineSigning {
		return nil, fmt.Errorf("cascade: zone %s: online signing not enabled", z.Apex)
	}
	var b *SignedZoneBuilder
	err := z.withState(func(cur fsmState) (fsmState, error) {
		p, ok := cur.(passiveState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "start_resign")
		}
		bs := otherSigned(p.curSigned)
		b = newSignedZoneBuilder(z.store, z.Apex, bs)
		return resignBuildingState{curUnsigned: p.curUnsigned, curSigned: p.curSigned, buildSigned: bs, apex: z.Apex}, nil
	})
	return b, err
}

// currentUnsignedUpcoming returns a Reader over the unsigned instance a
// BuildingSigned-state signer is working from. It is a read-only
// convenience for the engine's sign() background task, which needs the
// unsigned content but was not handed a Reviewer for it (the Reviewer
// from FinishUnsigned was already consumed by MarkApprovedUnsigned).
func (z *Zone) currentUnsignedUpcoming() *Reader {
	s, ok := z.currentState().(buildingSignedState)
	if !ok {
		return newReader(z.store, z.currentAuthoritativeUnsigned())
	}
	return newReader(z.store, s.upcomingUnsigned)
}

func (z *Zone) currentAuthoritativeUnsigned() slotID {
	switch s := z.currentState().(type) {
	case passiveState:
		return s.curUnsigned
	case buildingUnsignedState:
		return s.curUnsigned
	case buildingWholeState:
		return s.curUnsigned
	case buildingSignedState:
		return s.curUnsigned
	default:
		return slotU0
	}
}

// FinishResign commits a re-signed instance and moves to
// ResignPendingReview.
func (z *Zone) FinishResign(b *SignedZoneBuilder) (*Reviewer, error) {
	var rv *Reviewer
	err := z.withState(func(cur fsmState) (fsmState, error) {
		s, ok := cur.(resignBuildingState)
		if !ok {
			return nil, errWrongState(z.Apex, cur, "finish")
		}
		if _, ferr := b.Finish(); ferr != nil {
			bs := s.buildSigned
			return cleaningState{curUnsigned: s.curUnsigned, curSigned: s.curSigned, retireSigned: &bs, apex: z.Apex},
				fmt.Errorf("%w: %v", ErrInconsistency, ferr)
		}
		prev := z.store.get(s.curSigned)
		next := z.store.get(s.buildSigned)
		diff := ComputeDiff(prev, next)
		signed := s.buildSigned
		rv = newReviewer(z.store, s.curUnsigned, &signed, diff)
		return resignPendingReviewState{
			curUnsigned: s.curUnsigned, curSigned: s.curSigned,
			upcomingSigned: s.buildSigned, diff: diff, apex: z.Apex,
		}, nil
	})
	return rv, err
}
