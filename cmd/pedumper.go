// Copyright 2021 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	all         bool
	verbose     bool
	dosHeader   bool
	richHeader  bool
	ntHeader    bool
	directories bool
	sections    bool
	clr         bool
)

// cobraRun adapts the dump command's flags to the detailed, config-driven
// dumper in dump.go.
func cobraRun(cmd *cobra.Command, args []string) {
	cfg := config{
		wantDOSHeader:  dosHeader,
		wantRichHeader: richHeader,
		wantNTHeader:   ntHeader,
		wantDataDirs:   directories,
		wantSections:   sections,
		wantCLR:        clr,
	}
	if all {
		cfg = config{
			wantDOSHeader:   true,
			wantRichHeader:  true,
			wantNTHeader:    true,
			wantCOFF:        true,
			wantDataDirs:    true,
			wantSections:    true,
			wantExport:      true,
			wantImport:      true,
			wantResource:    true,
			wantException:   true,
			wantCertificate: true,
			wantReloc:       true,
			wantDebug:       true,
			wantTLS:         true,
			wantLoadCfg:     true,
			wantBoundImp:    true,
			wantIAT:         true,
			wantDelayImp:    true,
			wantCLR:         true,
		}
	}

	parse(args[0], cfg)
}

func main() {

	var rootCmd = &cobra.Command{
		Use:   "clrtsdump",
		Short: "A Portable Executable and CLR metadata dumper",
		Long:  "A PE and CLI/ECMA-335 metadata parser built for speed and malware-analysis in mind by Saferwall",
		Run: func(cmd *cobra.Command, args []string) {
		},
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Long:  "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print("You are using version 0.0.1")
		},
	}

	var dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Dumps the file",
		Long:  "Dumps interesting structures of the Portable Executable file, including CLR/.NET metadata",
		Args:  cobra.MinimumNArgs(1),
		Run:   cobraRun,
	}

	// Init root command.
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)

	// Init flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	dumpCmd.Flags().BoolVarP(&dosHeader, "dosheader", "", false, "Dump DOS header")
	dumpCmd.Flags().BoolVarP(&richHeader, "rich", "", false, "Dump Rich header")
	dumpCmd.Flags().BoolVarP(&ntHeader, "ntheader", "", false, "Dump NT header")
	dumpCmd.Flags().BoolVarP(&directories, "directories", "", false, "Dump data directories")
	dumpCmd.Flags().BoolVarP(&sections, "sections", "", false, "Dump section headers")
	dumpCmd.Flags().BoolVarP(&clr, "clr", "", false, "Dump .NET metadata (CLR header, metadata tables, and the decoded type system)")
	dumpCmd.Flags().BoolVarP(&all, "all", "", false, "Dump everything")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

}
