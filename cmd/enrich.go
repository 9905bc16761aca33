package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/supplytrace/esg-cli/internal/model"
)

var (
	enrichWebsite     string
	enrichDescription string
	enrichNotes       string
	enrichSave        string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich <company name>",
	Short: "Enrich a single company ad hoc",
	Long:  "Runs the full question set for one company and prints the supplier record as JSON. Use --save to also persist it under an organization.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		known := model.KnownFields{
			Website:     enrichWebsite,
			Description: enrichDescription,
			Notes:       enrichNotes,
		}

		supplier, qErrs, err := e.Enricher.Enrich(ctx, args[0], known)
		if err != nil {
			return err
		}
		for _, qe := range qErrs {
			zap.L().Warn("question degraded",
				zap.String("question", qe.Key),
				zap.Error(qe.Err),
			)
		}

		if enrichSave != "" {
			if err := e.Store.PutSupplier(ctx, enrichSave, supplier); err != nil {
				return err
			}
			zap.L().Info("supplier saved",
				zap.String("org_id", enrichSave),
				zap.String("supplier_id", supplier.ID),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(supplier)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichWebsite, "website", "", "known website URL")
	enrichCmd.Flags().StringVar(&enrichDescription, "description", "", "known company description")
	enrichCmd.Flags().StringVar(&enrichNotes, "notes", "", "free-form notes carried onto the supplier")
	enrichCmd.Flags().StringVar(&enrichSave, "save", "", "org ID to persist the supplier under")
	rootCmd.AddCommand(enrichCmd)
}
