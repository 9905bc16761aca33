package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var suppliersOrgID string

var suppliersCmd = &cobra.Command{
	Use:   "suppliers",
	Short: "Inspect an organization's supplier records",
}

var suppliersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List suppliers, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		suppliers, err := st.ListSuppliers(ctx, suppliersOrgID)
		if err != nil {
			return err
		}
		for _, s := range suppliers {
			fmt.Printf("%s  %-8s %s\n", s.ID, s.ESG.Segment, s.Name)
		}
		return nil
	},
}

var suppliersDeleteCmd = &cobra.Command{
	Use:   "delete <supplier-id>",
	Short: "Delete a supplier record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.DeleteSupplier(ctx, suppliersOrgID, args[0]); err != nil {
			return err
		}
		zap.L().Info("supplier deleted",
			zap.String("org_id", suppliersOrgID),
			zap.String("supplier_id", args[0]),
		)
		return nil
	},
}

func init() {
	suppliersCmd.PersistentFlags().StringVar(&suppliersOrgID, "org", "", "organization ID (required)")
	_ = suppliersCmd.MarkPersistentFlagRequired("org")
	suppliersCmd.AddCommand(suppliersListCmd, suppliersDeleteCmd)
	rootCmd.AddCommand(suppliersCmd)
}
