package cascade

// fsmState is implemented by every concrete lifecycle state plus the
// Poisoned sentinel (spec §4.2). Each non-sentinel state embeds the slot
// indices it currently owns so that invariant 1 ("for every non-terminal
// state there is exactly one set of slot indices denoting which of
// U0/U1/S0/S1 may be mutated") is a property of the Go value itself,
// rather than something re-derived from a side table at every
// transition.
type fsmState interface {
	stateName() string
}

// poisonedState is written into Zone.state for the duration of a
// transition (see Zone.withState in zone.go). Observing it from outside
// that window is the implementation bug spec.md §4.2/§8 calls out.
type poisonedState struct{}

func (poisonedState) stateName() string { return "Poisoned" }

// --- Passive group -----------------------------------------------------

// passiveState is the idle state: curUnsigned/curSigned name the
// authoritative slots; nothing is being built, reviewed, or cleaned.
type passiveState struct {
	curUnsigned slotID
	curSigned   slotID
}

func (passiveState) stateName() string { return "Passive" }

// --- Building group ------------------------------------------------

// buildingUnsignedState: a Builder holds buildUnsigned exclusively; the
// authoritative slots are untouched and remain readable via Viewer.
type buildingUnsignedState struct {
	curUnsigned, curSigned     slotID
	buildUnsigned, buildSigned slotID // buildSigned held only to support ClearSigned/give_up symmetry
	apex                       string
}

func (buildingUnsignedState) stateName() string { return "BuildingUnsigned" }

// buildingWholeState: pass-through signing — a single Builder writes both
// the unsigned and signed halves of the upcoming instance together.
type buildingWholeState struct {
	curUnsigned, curSigned     slotID
	buildUnsigned, buildSigned slotID
	apex                       string
}

func (buildingWholeState) stateName() string { return "BuildingWhole" }

// buildingSignedState: the unsigned half has already been persisted
// (upcomingUnsigned); a SignedZoneBuilder now produces the matching
// signed content into buildSigned. curUnsigned/curSigned are still the
// OLD authoritative slots — the new unsigned instance is not promoted
// until Switch (invariant 2).
type buildingSignedState struct {
	curUnsigned, curSigned slotID
	upcomingUnsigned       slotID
	buildSigned            slotID
	apex                   string
}

func (buildingSignedState) stateName() string { return "BuildingSigned" }

// resignBuildingState: re-signing an already-authoritative instance in
// place, without touching the unsigned side.
type resignBuildingState struct {
	curUnsigned, curSigned slotID
	buildSigned            slotID
	apex                   string
}

func (resignBuildingState) stateName() string { return "ResignBuilding" }

// --- PendingReview group -------------------------------------------

type pendingUnsignedReviewState struct {
	curUnsigned, curSigned slotID
	upcomingUnsigned       slotID
	diff                   *Diff
	apex                   string
}

func (pendingUnsignedReviewState) stateName() string { return "PendingUnsignedReview" }

type pendingSignedReviewState struct {
	curUnsigned, curSigned           slotID
	upcomingUnsigned, upcomingSigned slotID
	diff                             *Diff
	apex                             string
}

func (pendingSignedReviewState) stateName() string { return "PendingSignedReview" }

type pendingWholeReviewState struct {
	curUnsigned, curSigned           slotID
	upcomingUnsigned, upcomingSigned slotID
	diff                             *Diff
	apex                             string
}

func (pendingWholeReviewState) stateName() string { return "PendingWholeReview" }

type resignPendingReviewState struct {
	curUnsigned, curSigned slotID
	upcomingSigned         slotID
	diff                   *Diff
	apex                   string
}

func (resignPendingReviewState) stateName() string { return "ResignPendingReview" }

// --- Reviewing group -------------------------------------------------

type reviewingUnsignedState struct {
	curUnsigned, curSigned slotID
	upcomingUnsigned       slotID
	diff                   *Diff
	apex                   string
}

func (reviewingUnsignedState) stateName() string { return "ReviewingUnsigned" }

type reviewingSignedState struct {
	curUnsigned, curSigned           slotID
	upcomingUnsigned, upcomingSigned slotID
	diff                             *Diff
	apex                             string
}

func (reviewingSignedState) stateName() string { return "ReviewingSigned" }

type reviewingWholeState struct {
	curUnsigned, curSigned           slotID
	upcomingUnsigned, upcomingSigned slotID
	diff                             *Diff
	apex                             string
}

func (reviewingWholeState) stateName() string { return "ReviewingWhole" }

type resignReviewingState struct {
	curUnsigned, curSigned slotID
	upcomingSigned         slotID
	diff                   *Diff
	apex                   string
}

func (resignReviewingState) stateName() string { return "ResignReviewing" }

// --- Persisting group --------------------------------------------------

type persistingUnsignedState struct {
	curUnsigned, curSigned slotID
	upcomingUnsigned       slotID
	diff                   *Diff
	apex                   string
}

func (persistingUnsignedState) stateName() string { return "PersistingUnsigned" }

type persistingSignedState struct {
	curUnsigned, curSigned           slotID
	upcomingUnsigned, upcomingSigned slotID
	diff                             *Diff
	apex                             string
}

func (persistingSignedState) stateName() string { return "PersistingSigned" }

type persistingWholeState struct {
	curUnsigned, curSigned           slotID
	upcomingUnsigned, upcomingSigned slotID
	diff                             *Diff
	apex                             string
}

func (persistingWholeState) stateName() string { return "PersistingWhole" }

type resignPersistingState struct {
	curUnsigned, curSigned slotID
	upcomingSigned         slotID
	diff                   *Diff
	apex                   string
}

func (resignPersistingState) stateName() string { return "ResignPersisting" }

// --- Switching group -----------------------------------------------

// switchingState promotes both the unsigned and signed upcoming slots to
// authoritative; retireUnsigned/retireSigned name the outgoing slots,
// which a Viewer issued before this transition may still legitimately
// read (invariant 3).
type switchingState struct {
	newUnsigned, newSigned         slotID
	retireUnsigned, retireSigned   slotID
	apex                           string
}

func (switchingState) stateName() string { return "Switching" }

// switchingUnsignedOnlyState is the "directly to Switching" branch named
// in spec §4.2's representative transitions: the signed side was never
// rebuilt (signing disabled for this zone), so only the unsigned slot is
// promoted and the signed authoritative slot is untouched.
type switchingUnsignedOnlyState struct {
	newUnsigned, curSigned slotID
	retireUnsigned         slotID
	apex                   string
}

func (switchingUnsignedOnlyState) stateName() string { return "SwitchingUnsignedOnly" }

type resignSwitchingState struct {
	curUnsigned, newSigned slotID
	retireSigned           slotID
	apex                   string
}

func (resignSwitchingState) stateName() string { return "ResignSwitching" }

// --- PendingClean / Cleaning group --------------------------------

// pendingCleanState: a switch has installed the new Viewer, but the
// Cleaner for the retired slot(s) is withheld until downstream consumers
// have released the old Viewer (invariant 3).
type pendingCleanState struct {
	curUnsigned, curSigned         slotID
	retireUnsigned, retireSigned   *slotID
	apex                           string
}

func (pendingCleanState) stateName() string { return "PendingClean" }

// cleaningState: a Cleaner has been issued for retireUnsigned/retireSigned
// and a background task is truncating them back to the empty instance.
type cleaningState struct {
	curUnsigned, curSigned       slotID
	retireUnsigned, retireSigned *slotID
	apex                         string
}

func (cleaningState) stateName() string { return "Cleaning" }

type resignPendingCleanState struct {
	curUnsigned, curSigned slotID
	retireSigned           slotID
	apex                   string
}

func (resignPendingCleanState) stateName() string { return "ResignPendingClean" }

type resignCleaningState struct {
	curUnsigned, curSigned slotID
	retireSigned           slotID
	apex                   string
}

func (resignCleaningState) stateName() string { return "ResignCleaning" }
