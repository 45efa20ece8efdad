package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ehr/internal/diff"
	"ehr/internal/model"
)

func newRediffCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "rediff",
		Short: "重新计算报告日相对周/月/年末基准的增减",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := loadConfig()
			s, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			engine := diff.NewEngine(s)
			var summary *diff.Summary
			if date != "" {
				d, err := time.Parse(model.DateLayout, date)
				if err != nil {
					return fmt.Errorf("invalid date %q: %w", date, err)
				}
				summary, err = engine.RunFor(d)
				if err != nil {
					return err
				}
			} else {
				summary, err = engine.Run()
				if err != nil {
					return err
				}
			}
			if summary == nil {
				fmt.Println("暂无数据")
				return nil
			}

			fmt.Printf("报告日 %s: %d 条记录\n", summary.ReportDate.Format(model.DateLayout), summary.Records)
			for _, base := range model.AllBaseTypes {
				fmt.Printf("  %-8s 基准日 %s，找到基准 %d 条\n", base,
					diff.BaselineDate(summary.ReportDate, base).Format(model.DateLayout), summary.Found[base])
			}
			for _, e := range summary.Errors {
				fmt.Printf("  错误: %s\n", e)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "报告日 YYYY-MM-DD (默认最新)")
	return cmd
}
