package main

import (
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"finitefield.org/showcase-web/internal/catalog"
	"finitefield.org/showcase-web/internal/listing"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load every catalog collection and report item counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cat, err := catalog.LoadFile(cfg.Data.Catalog)
		if err != nil {
			return err
		}

		dataFS := os.DirFS(cfg.Data.Dir)
		client := &http.Client{Timeout: 10 * time.Second}
		out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(out, "COLLECTION\tSOURCE\tRESULT")

		failed := 0
		for _, def := range cat.Collections {
			col, err := listing.Load(cmd.Context(), def.NewSource(dataFS, client), def.DecodeOptions())
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s\t%s\terror: %v\n", def.Name, def.Source, err)
				continue
			}
			fmt.Fprintf(out, "%s\t%s\t%d items\n", def.Name, def.Source, col.Len())
		}
		if err := out.Flush(); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d collections failed to load", failed, len(cat.Collections))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
