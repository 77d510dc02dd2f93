package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
)

type sectionsOutput struct {
	Sections entities.ReportSections `json:"sections"`
	Missing  []string                `json:"missing,omitempty"`
	Grade    string                  `json:"wagner_grade,omitempty"`
	Alert    bool                    `json:"alert"`
}

func newSectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sections <report-file|->",
		Short: "Split a report into its clinical sections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}

			report := string(raw)
			sections := entities.ParseReportSections(report)
			return writeJSON(cmd.OutOrStdout(), sectionsOutput{
				Sections: sections,
				Missing:  sections.Missing(),
				Grade:    entities.ClassifyWagnerGrade(report),
				Alert:    entities.HasClinicalAlert(report),
			})
		},
	}
}
