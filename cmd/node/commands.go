package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sgawallet/sga-wallet/app"
	"github.com/sgawallet/sga-wallet/chain"
	"github.com/sgawallet/sga-wallet/chain/families"
	"github.com/sgawallet/sga-wallet/common/utils"
	conf "github.com/sgawallet/sga-wallet/config"
	prt "github.com/sgawallet/sga-wallet/protocol"
	"github.com/sgawallet/sga-wallet/storage"
	"github.com/sgawallet/sga-wallet/wallet"
	"github.com/spf13/cobra"
	"github.com/syndtr/goleveldb/leveldb"
)

// Generate fresh key material offline
func generateCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "generate <family>",
		Short: "Generate a new key and address (evm, solana, bitcoin, xrpl or a CAIP-2 id)",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			family, err := chain.Parse(args[0])
			if err != nil {
				fmt.Println(err)
				os.Exit(1)
			}

			km, err := wallet.NewGenerator(families.Registry()).Generate(family)
			if err != nil {
				fmt.Printf("Failed to generate key: %v\n", err)
				os.Exit(1)
			}
			defer km.Clear()

			fmt.Printf("=== New %s Key ===\n", family)
			fmt.Println("")
			fmt.Printf("Address: %s\n", km.Address)
			if !reveal {
				fmt.Println("")
				fmt.Println("Secret not shown. Re-run with --reveal to print it once.")
				return
			}

			exported, err := km.Export()
			if err != nil {
				fmt.Printf("Failed to export key: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("")
			fmt.Println("IMPORTANT: Write down your secret and keep it safe!")
			fmt.Println("It is not stored anywhere. If you lose it, you lose access to the address.")
			fmt.Println("")
			fmt.Printf("Secret: %s\n", exported.Secret)
			if exported.Mnemonic != "" {
				fmt.Printf("Mnemonic: %s\n", exported.Mnemonic)
			}
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the secret (and mnemonic) to stdout")
	return cmd
}

// List families and their wallet providers
func familiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List supported chain families and wallet providers",
		Run: func(cmd *cobra.Command, args []string) {
			reg := families.Registry()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tCHAIN ID\tPROVIDERS")
			for _, id := range reg.Families() {
				f, _ := reg.Family(id)
				caip, _ := chain.CAIP2(id)
				var kinds []string
				for _, k := range f.Providers() {
					kinds = append(kinds, string(k))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, caip, strings.Join(kinds, ", "))
			}
			w.Flush()
		},
	}
}

// openDB opens the node db for offline commands; fails while the node runs.
func openDB() (*conf.Config, *leveldb.DB) {
	cfg, err := conf.NewConfig(configFile)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	db, err := storage.InitDB(cfg)
	if err != nil {
		fmt.Printf("Failed to open db (is the node running?): %v\n", err)
		os.Exit(1)
	}
	return cfg, db
}

func connectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections",
		Short: "Inspect the persisted connection set",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list [family]",
		Short: "List stored connections",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			_, db := openDB()
			defer db.Close()

			var filter prt.Family
			if len(args) == 1 {
				family, err := chain.Parse(args[0])
				if err != nil {
					fmt.Println(err)
					return
				}
				filter = family
			}

			list, errs := storage.NewConnectionStore(db).List(filter)
			for _, err := range errs {
				fmt.Printf("skipped: %v\n", err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FAMILY\tADDRESS\tPROVIDER\tLABEL\tCONNECTED")
			for _, c := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.Family, c.Address, c.Provider, c.Label,
					time.Unix(c.ConnectedAt, 0).Format(time.RFC3339))
			}
			w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <family> <address>",
		Short: "Remove a stored connection",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, db := openDB()
			a, err := app.Assemble(cfg, db)
			if err != nil {
				db.Close()
				fmt.Printf("Failed to initialize: %v\n", err)
				os.Exit(1)
			}
			defer a.Terminate()

			family, err := chain.Parse(args[0])
			if err != nil {
				fmt.Println(err)
				return
			}
			a.Restore()
			if err := a.Manager.Disconnect(family, args[1]); err != nil {
				fmt.Printf("Failed to remove connection: %v\n", err)
				return
			}
			fmt.Printf("Removed %s %s\n", family, args[1])
		},
	})

	return cmd
}

// One-shot aggregation over the stored connections
func assetsCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Run one aggregation pass over stored connections and print the result",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, db := openDB()
			a, err := app.Assemble(cfg, db)
			if err != nil {
				db.Close()
				fmt.Printf("Failed to initialize: %v\n", err)
				os.Exit(1)
			}
			defer a.Terminate()

			if a.Restore() == 0 {
				fmt.Println("No stored connections.")
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := a.Aggregator.Refresh(ctx); err != nil {
				fmt.Printf("Aggregation aborted: %v\n", err)
				return
			}

			records := a.Aggregator.ListAssets()
			sort.Slice(records, func(i, j int) bool { return records[i].FiatValue > records[j].FiatValue })

			var total float64
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "FAMILY\tNETWORK\tSYMBOL\tAMOUNT\tVALUE\tP/L\t")
			for _, r := range records {
				pnl := "-"
				if r.ProfitOrLoss != nil {
					pnl = fmt.Sprintf("%.2f", *r.ProfitOrLoss)
				}
				value := fmt.Sprintf("%.2f", r.FiatValue)
				if r.Unpriced {
					value = "n/a"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n", r.Family, r.Network, short(r.Symbol),
					utils.FormatFloat(r.Amount, 8), value, pnl)
				total += r.FiatValue
			}
			w.Flush()
			fmt.Printf("\nTotal: %.2f %s\n", total, strings.ToUpper(cfg.Price.VsCurrency))
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Upper bound for the whole pass")
	return cmd
}

func dbCmd() *cobra.Command {
	var prefix string
	var limit int

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Browse the node database",
		Run: func(cmd *cobra.Command, args []string) {
			_, db := openDB()
			defer db.Close()

			entries, err := storage.Browse(db, prefix, limit)
			if err != nil {
				fmt.Printf("Failed to browse db: %v\n", err)
				return
			}
			for _, e := range entries {
				fmt.Printf("%s (%d bytes)\n  %s\n", e.Key, e.Size, e.Value)
			}
			fmt.Printf("\n%d entries\n", len(entries))
		},
	}

	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "Key prefix (conn:, basis:, meta:)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum entries to show")
	return cmd
}

func short(s string) string {
	if len(s) > 16 {
		return s[:6] + "…" + s[len(s)-6:]
	}
	return s
}
