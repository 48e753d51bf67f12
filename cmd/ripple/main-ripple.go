// Copyright 2025, Ripplekit Authors.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ripplekit/ripple/app"
	"github.com/ripplekit/ripple/presshold"
	"github.com/ripplekit/ripple/store"
)

// these are set at build time
var RippleVersion = "0.0.0"
var BuildTime = "0"

var rootCmd = &cobra.Command{
	Use:   "ripple",
	Short: "Ripple - a server-driven reactive UI kit",
	Long:  `Ripple is a server-driven reactive UI kit: state lives in Go, patches flow to the browser.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print Ripple version",
	Long:  `Print Ripple version`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("v" + RippleVersion)
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Serve the press-and-hold demo app",
	Long:  `Serve the press-and-hold demo app (set ` + app.RippleListenAddrEnvVar + ` to pick the listen address)`,
	Run: func(cmd *cobra.Command, args []string) {
		runDemo()
	},
}

func runDemo() {
	appStore := store.MakeStore(presshold.State{Text: ""})
	demoApp := app.MakeApp(appStore, app.AppOpts{Title: "press-hold demo"})
	inst := presshold.New(appStore.GetState(), func(partial store.Partial) {
		appStore.SetState(partial)
	})
	demoApp.Mount("root", inst)
	demoApp.RunMain()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(demoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
