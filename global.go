/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cascade

import (
	"fmt"
	"net/url"
)

// GlobalStuff holds process-wide CLI/daemon flags, following the
// teacher's GlobalStuff (global.go). Cascade trims it to the fields its
// own CLI (cmd/cascadectl) and daemon (cmd/cascaded) actually consume;
// the teacher's resolver-oriented fields (IMR, Sig0Keyfile, Algorithm,
// ServerALPN) have no equivalent concept in a signing pipeline and are
// dropped rather than carried as dead weight.
type GlobalStuff struct {
	Verbose     bool
	Debug       bool
	ShowHeaders bool // not bound to any cascadectl flag
	BaseUri     string
	ApiKey      string
	App         AppDetails
	Api         *ApiClient
}

var Globals = GlobalStuff{}

func (gs *GlobalStuff) Validate() error {
	if gs.BaseUri != "" {
		if _, err := url.Parse(gs.BaseUri); err != nil {
			return fmt.Errorf("cascade: invalid base URI: %s", gs.BaseUri)
		}
	}
	return nil
}
