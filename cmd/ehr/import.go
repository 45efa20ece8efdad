package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ehr/internal/config"
	"ehr/internal/importer"
	"ehr/internal/model"
	"ehr/internal/parser"
	memstore "ehr/internal/service/store"
	"ehr/internal/store"
	"ehr/internal/util"
)

type importOptions struct {
	fileType string
	dryRun   bool
	quiet    bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file.xlsx|file.xls>",
		Short: "导入一个人力现况 Excel 文件",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.fileType, "type", "", "文件类型: domestic, overseas, contractor (默认自动识别)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "只解析并在内存中计算，不写数据库")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "不输出记录明细")
	return cmd
}

func runImport(path string, opts importOptions) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", path)
	}

	var fileType model.FileType
	if opts.fileType != "" {
		ft, ok := model.ParseFileType(opts.fileType)
		if !ok {
			return fmt.Errorf("invalid type: %s (must be domestic, overseas, or contractor)", opts.fileType)
		}
		fileType = ft
	}

	cfg, _ := loadConfig()
	registry, err := parser.LoadTemplates(cfg.Excel.TemplateMapPath)
	if err != nil {
		return err
	}
	coordOpts := importer.Options{
		Registry:             registry,
		HeaderSearchRows:     cfg.Import.HeaderSearchRows,
		RejectUnresolvedDate: cfg.Import.RejectUnresolvedDate,
	}

	var coordinator *importer.Coordinator
	if opts.dryRun {
		coordinator = importer.NewCoordinator(memstore.NewMemoryStore(), nil, coordOpts)
	} else {
		s, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		coordinator = importer.NewCoordinator(s, s, coordOpts)
	}

	report, err := coordinator.Import(importer.ImportOptions{
		FilePath: path,
		FileType: fileType,
		Progress: func(e importer.ProgressEvent) {
			if !opts.quiet {
				fmt.Printf("[%s] %s\n", e.Type, e.Message)
			}
		},
	})
	if err != nil {
		return err
	}

	printReport(report, opts.quiet)
	return nil
}

func openStore(cfg *config.AppConfig) (*store.Store, error) {
	dir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}
	return store.New(filepath.Join(dir, "ehr.db"))
}

func printReport(report *importer.ImportReport, quiet bool) {
	fmt.Printf("\n文件: %s (%s)\n", report.Filename, report.FileType)
	fmt.Printf("报告日: %s (来源: %s)\n", report.ReportDate, report.DateSource)
	fmt.Printf("记录: 共 %d 条，成功 %d 条，新增 %d 条，失败 %d 条\n",
		report.TotalRecords, report.SuccessCount, report.Inserted, report.ErrorCount)
	for _, w := range report.Warnings {
		fmt.Printf("  警告: %s\n", w)
	}
	for _, e := range report.Errors {
		fmt.Printf("  错误: %s\n", e)
	}
	if quiet {
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	if len(report.Records) > 0 {
		fmt.Fprintln(w, "\n회사\t프로젝트\t구분\t인원\t증감\t증감률")
		for _, r := range report.Records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", r.CompanyName, util.Truncate(r.ProjectName, 30),
				r.StaffType, r.Headcount, util.FormatChange(r.HeadcountChange), util.FormatRate(r.ChangeRate))
		}
	}
	if len(report.Snapshots) > 0 {
		fmt.Fprintln(w, "\n법인\t총원")
		for _, s := range report.Snapshots {
			fmt.Fprintf(w, "%s\t%d\n", s.Corporation, s.TotalCount)
		}
	}
}
