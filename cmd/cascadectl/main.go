/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package main

import (
	"github.com/nlnetlabs/cascade"
	"github.com/nlnetlabs/cascade/cmd/cascadectl/cmd"
)

var appVersion, appName, appDate string

func main() {
	cascade.Globals.App.Name = appName
	cascade.Globals.App.Version = appVersion
	cascade.Globals.App.Date = appDate
	cmd.Execute()
}
