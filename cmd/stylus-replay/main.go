// stylus-replay - Replay previously executed Stylus transactions against a
// locally built contract. This binary:
// 1. Fetches a transaction, its receipt and its hostio trace from a node
// 2. Decodes the trace into typed hostio frames
// 3. Serves the recording to a loaded contract binary's host-call intercepts
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/spf13/cobra"

	"github.com/colorfulnotion/stylus-replay/cache"
	"github.com/colorfulnotion/stylus-replay/console"
	"github.com/colorfulnotion/stylus-replay/hostio"
	"github.com/colorfulnotion/stylus-replay/log"
	"github.com/colorfulnotion/stylus-replay/replay"
	"github.com/colorfulnotion/stylus-replay/report"
	"github.com/colorfulnotion/stylus-replay/trace"
	"github.com/colorfulnotion/stylus-replay/util"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:     "stylus-replay",
		Short:   "Stylus transaction replay tool",
		Version: Version,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var (
		endpoint string
		txHash   string
		cacheDir string
		noCache  bool
		logLevel string
		debug    string
	)

	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "http://localhost:8545", "RPC endpoint of a node that executed the transaction")
	rootCmd.PersistentFlags().StringVarP(&txHash, "tx", "t", "", "Transaction hash to replay")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", filepath.Join(os.Getenv("HOME"), ".stylus-replay"), "Trace cache directory")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Trace through the node even when a cached trace exists")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error, crit)")
	rootCmd.PersistentFlags().StringVar(&debug, "debug", "", "Debug modules to enable (acquire,decode,replay,cache,console,report,build or all)")

	// acquire shares the fetch-and-decode path between the subcommands.
	acquire := func() (*trace.Trace, func()) {
		log.InitLogger(logLevel)
		log.EnableModules(debug)

		if txHash == "" {
			fmt.Printf("--tx is required\n")
			os.Exit(1)
		}
		raw, err := hexutil.Decode(txHash)
		if err != nil || len(raw) != common.HashLength {
			fmt.Printf("Invalid transaction hash %q\n", txHash)
			os.Exit(1)
		}
		hash := common.BytesToHash(raw)

		client, err := rpc.Dial(endpoint)
		if err != nil {
			fmt.Printf("Failed to connect to %s: %v\n", endpoint, err)
			os.Exit(1)
		}

		cfg := trace.Config{Endpoint: endpoint}
		cleanup := func() { client.Close() }
		if !noCache {
			store, err := cache.NewStore(filepath.Join(cacheDir, "traces"))
			if err != nil {
				fmt.Printf("Failed to open trace cache: %v\n", err)
				os.Exit(1)
			}
			cfg.Cache = store
			cleanup = func() {
				store.Close()
				client.Close()
			}
		}

		tr, err := trace.New(context.Background(), client, hash, cfg)
		if err != nil {
			fmt.Printf("Failed to acquire trace: %v\n", err)
			cleanup()
			os.Exit(1)
		}
		return tr, cleanup
	}

	var (
		printRaw   bool
		printJSON  bool
		reportPath string
		expectPath string
	)

	var traceCmd = &cobra.Command{
		Use:   "trace",
		Short: "Fetch and decode a transaction's hostio trace",
		Run: func(cmd *cobra.Command, args []string) {
			tr, cleanup := acquire()
			defer cleanup()

			switch {
			case printRaw:
				fmt.Println(string(tr.Raw))
			case printJSON:
				out, err := json.MarshalIndent(tr.Frame, "", "  ")
				if err != nil {
					fmt.Printf("Failed to render trace: %v\n", err)
					os.Exit(1)
				}
				fmt.Println(string(out))
			default:
				fmt.Print(trace.Tree(tr.Frame))
			}

			if reportPath != "" {
				if err := report.WriteInkProfile(tr.Frame, tr.Hash.Hex(), reportPath); err != nil {
					fmt.Printf("Failed to write report: %v\n", err)
					os.Exit(1)
				}
				fmt.Printf("✓ Ink profile written to %s\n", reportPath)
			}

			if expectPath != "" {
				expected, err := os.ReadFile(expectPath)
				if err != nil {
					fmt.Printf("Failed to read expected trace: %v\n", err)
					os.Exit(1)
				}
				actual, err := json.Marshal(tr.Frame)
				if err != nil {
					fmt.Printf("Failed to render trace: %v\n", err)
					os.Exit(1)
				}
				diff, changed, err := hostio.DiffJSON(expected, actual)
				if err != nil {
					fmt.Printf("Failed to diff traces: %v\n", err)
					os.Exit(1)
				}
				if changed {
					fmt.Printf("Trace differs from %s:\n%s", expectPath, diff)
					os.Exit(1)
				}
				fmt.Printf("✓ Trace matches %s\n", expectPath)
			}
		},
	}
	traceCmd.Flags().BoolVar(&printRaw, "raw", false, "Print the raw tracer output instead of the tree")
	traceCmd.Flags().BoolVar(&printJSON, "json", false, "Print the decoded frame as JSON instead of the tree")
	traceCmd.Flags().StringVar(&reportPath, "report", "", "Write an HTML ink profile to this path")
	traceCmd.Flags().StringVar(&expectPath, "expect", "", "Diff the decoded frame against a saved JSON trace")

	var (
		project     string
		launcherSel string
		skipBuild   bool
	)

	var replayCmd = &cobra.Command{
		Use:   "replay",
		Short: "Replay a transaction against the locally built contract",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Replaying Stylus transaction\n")
			fmt.Printf("  Endpoint: %s\n", endpoint)
			fmt.Printf("  Tx: %s\n", txHash)
			fmt.Printf("  Project: %s\n", project)
			fmt.Printf("  Launcher: %s\n", launcherSel)

			fmt.Printf("\n[1/4] Acquiring trace...\n")
			tr, cleanup := acquire()
			defer cleanup()
			fmt.Printf("✓ Decoded %d root steps\n", len(tr.Frame.Steps))

			fmt.Printf("\n[2/4] Building contract library...\n")
			if skipBuild {
				fmt.Printf("✓ Skipped (--skip-build)\n")
			} else {
				if err := util.BuildSharedLibrary(project); err != nil {
					fmt.Printf("Failed to build contract: %v\n", err)
					os.Exit(1)
				}
				fmt.Printf("✓ Built\n")
			}

			fmt.Printf("\n[3/4] Locating contract library...\n")
			libPath, err := util.FindSharedLibrary(project)
			if err != nil {
				fmt.Printf("Failed to locate contract library: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("✓ %s\n", libPath)

			fmt.Printf("\n[4/4] Replaying...\n")
			launcher, err := replay.NewLauncher(launcherSel)
			if err != nil {
				fmt.Printf("Failed to resolve launcher: %v\n", err)
				os.Exit(1)
			}
			entry, closer, err := launcher.Load(libPath)
			if err != nil {
				fmt.Printf("Failed to load contract library: %v\n", err)
				os.Exit(1)
			}
			defer closer()

			outcome, err := replay.Run(tr, entry)
			if err != nil {
				fmt.Printf("Replay failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("✓ Replay finished: %s\n", outcome)
		},
	}
	replayCmd.Flags().StringVarP(&project, "project", "p", ".", "Contract crate directory")
	replayCmd.Flags().StringVar(&launcherSel, "launcher", "dlopen", "Launcher used to load the built library")
	replayCmd.Flags().BoolVar(&skipBuild, "skip-build", false, "Reuse the existing build artifact")

	var inspectCmd = &cobra.Command{
		Use:   "inspect",
		Short: "Open an interactive console over the decoded trace",
		Run: func(cmd *cobra.Command, args []string) {
			tr, cleanup := acquire()
			defer cleanup()

			c, err := console.New(tr)
			if err != nil {
				fmt.Printf("Failed to start console: %v\n", err)
				os.Exit(1)
			}
			if err := c.Run(); err != nil {
				fmt.Printf("Console error: %v\n", err)
				os.Exit(1)
			}
		},
	}

	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(inspectCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
