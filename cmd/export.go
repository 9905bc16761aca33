package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/supplytrace/esg-cli/internal/model"
)

var (
	exportOrgID string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an organization's suppliers to XLSX",
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

		suppliers, err := st.ListSuppliers(ctx, exportOrgID)
		if err != nil {
			return err
		}

		if err := writeSupplierXLSX(suppliers, exportOut); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("org_id", exportOrgID),
			zap.Int("suppliers", len(suppliers)),
			zap.String("out", exportOut),
		)
		return nil
	},
}

// writeSupplierXLSX writes one row per supplier: identity columns, the six
// check availabilities, and the score segment.
func writeSupplierXLSX(suppliers []model.Supplier, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Suppliers")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"ID", "Name", "Website", "Description", "Segment", "Updated"} {
		header.AddCell().SetString(h)
	}
	for _, key := range model.ScoredKeys {
		header.AddCell().SetString(key)
	}

	for i := range suppliers {
		s := &suppliers[i]
		row := sheet.AddRow()
		row.AddCell().SetString(s.ID)
		row.AddCell().SetString(s.Name)
		row.AddCell().SetString(s.Website)
		row.AddCell().SetString(s.Description)
		row.AddCell().SetString(string(s.ESG.Segment))
		row.AddCell().SetString(s.ESG.Updated.Format("2006-01-02"))
		for _, key := range model.ScoredKeys {
			d, _ := s.ESG.ByKey(key)
			if d.Available {
				row.AddCell().SetString("yes")
			} else {
				row.AddCell().SetString("no")
			}
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func init() {
	exportCmd.Flags().StringVar(&exportOrgID, "org", "", "organization ID (required)")
	exportCmd.Flags().StringVar(&exportOut, "out", "suppliers.xlsx", "output file path")
	_ = exportCmd.MarkFlagRequired("org")
	rootCmd.AddCommand(exportCmd)
}
