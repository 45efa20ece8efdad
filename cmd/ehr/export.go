package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ehr/internal/exporter"
	"ehr/internal/model"
)

func newExportCmd() *cobra.Command {
	var (
		date   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出报告日的人力现况报表 (xlsx)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var reportDate time.Time
			if date != "" {
				d, err := time.Parse(model.DateLayout, date)
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", date, err)
				}
				reportDate = d
			}

			cfg, _ := loadConfig()
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			f, resolved, err := exporter.NewExporter(s).Export(exporter.ExportOptions{
				ReportDate: reportDate,
				Progress: func(e exporter.ProgressEvent) {
					fmt.Printf("  [%3d%%] %s\n", e.Percent, e.Stage)
				},
			})
			if err != nil {
				return err
			}
			defer f.Close()

			if output == "" {
				output = fmt.Sprintf("workforce-%s.xlsx", resolved.Format(model.DateLayout))
			}
			if err := f.SaveAs(output); err != nil {
				return fmt.Errorf("failed to save export: %w", err)
			}
			fmt.Printf("✓ 已导出 %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "报告日 YYYY-MM-DD (默认最新)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "输出文件路径")
	return cmd
}
