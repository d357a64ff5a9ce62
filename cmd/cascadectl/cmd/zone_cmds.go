/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package cmd

import (
	"fmt"
	"os"

	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"github.com/nlnetlabs/cascade"
)

var sourceKind, sourcePrimary, sourcePath, sourceTsigKey string
var approveStage string
var refreshReload bool

var zoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Prefix command to access different operations on cascaded zones",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("zone called. This is likely a mistake, sub command needed")
	},
}

var zoneRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Enqueue an immediate refresh for a zone",
	Run: func(cmd *cobra.Command, args []string) {
		requireZone()
		var resp map[string]string
		err := api.PostJSON("/api/v1/zone/refresh", map[string]interface{}{
			"zone":   zoneName,
			"reload": refreshReload,
		}, &resp)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Zone %s: refresh enqueued\n", zoneName)
	},
}

var zoneSourceCmd = &cobra.Command{
	Use:   "set-source",
	Short: "Change where a zone loads its unsigned data from",
	Run: func(cmd *cobra.Command, args []string) {
		requireZone()
		if sourceKind == "" {
			fmt.Printf("Error: --kind is required (primary|local_file|none)\n")
			os.Exit(1)
		}
		var resp map[string]string
		err := api.PostJSON("/api/v1/zone/source", map[string]interface{}{
			"zone":     zoneName,
			"kind":     sourceKind,
			"primary":  sourcePrimary,
			"path":     sourcePath,
			"tsig_key": sourceTsigKey,
		}, &resp)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Zone %s: source updated\n", zoneName)
	},
}

var zoneApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Mark the pending review for a zone as approved",
	Run: func(cmd *cobra.Command, args []string) {
		requireZone()
		if approveStage == "" {
			fmt.Printf("Error: --stage is required (Unsigned|Signed|Whole|Resign)\n")
			os.Exit(1)
		}
		var resp map[string]string
		err := api.PostJSON("/api/v1/zone/approve", map[string]interface{}{
			"zone":  zoneName,
			"stage": approveStage,
		}, &resp)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Zone %s: %s approved\n", zoneName, approveStage)
	},
}

var zoneRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a zone from cascaded",
	Run: func(cmd *cobra.Command, args []string) {
		requireZone()
		var resp map[string]string
		err := api.PostJSON("/api/v1/zone/remove", map[string]interface{}{
			"zone": zoneName,
		}, &resp)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Zone %s: removed\n", zoneName)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show FSM state and halt status for one zone, or all zones",
	Run: func(cmd *cobra.Command, args []string) {
		if zoneName != "" {
			var st cascade.StatusSnapshot
			if err := api.PostJSON("/api/v1/status", map[string]string{"zone": zoneName}, &st); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			printStatusTable([]cascade.StatusSnapshot{st})
			return
		}
		var all []cascade.StatusSnapshot
		if err := api.PostJSON("/api/v1/status", map[string]string{}, &all); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		printStatusTable(all)
	},
}

func printStatusTable(snaps []cascade.StatusSnapshot) {
	out := []string{"Zone|State|Refreshes|RefreshStatus|Halted|Reason"}
	for _, s := range snaps {
		out = append(out, fmt.Sprintf("%s|%s|%d|%s|%v|%s", s.Apex, s.State, s.RefreshCount, s.RefreshStatus, s.Halted, s.HaltReason))
	}
	fmt.Printf("%s\n", columnize.SimpleFormat(out))
}

func requireZone() {
	if zoneName == "" {
		fmt.Printf("Error: zone name not specified (with --zone)\n")
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(zoneCmd)
	zoneCmd.AddCommand(zoneRefreshCmd)
	zoneCmd.AddCommand(zoneSourceCmd)
	zoneCmd.AddCommand(zoneApproveCmd)
	zoneCmd.AddCommand(zoneRemoveCmd)
	rootCmd.AddCommand(statusCmd)

	zoneRefreshCmd.Flags().BoolVar(&refreshReload, "reload", false, "force a full reload rather than an incremental one")

	zoneSourceCmd.Flags().StringVar(&sourceKind, "kind", "", "source kind: primary, local_file, or none")
	zoneSourceCmd.Flags().StringVar(&sourcePrimary, "primary", "", "primary server address:port for AXFR/IXFR")
	zoneSourceCmd.Flags().StringVar(&sourcePath, "path", "", "path to a local zone file")
	zoneSourceCmd.Flags().StringVar(&sourceTsigKey, "tsig-key", "", "name of the TSIG key to use with the primary")

	zoneApproveCmd.Flags().StringVar(&approveStage, "stage", "", "review stage: Unsigned, Signed, Whole, or Resign")
}
