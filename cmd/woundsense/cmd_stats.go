package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newStatsCmd(s *session) *cobra.Command {
	var doctorID string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise a doctor's assessments",
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			svc, err := s.analytics(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := svc.DoctorStats(cmd.Context(), doctorID, time.Now())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		}),
	}

	cmd.Flags().StringVar(&doctorID, "doctor", "", "Doctor identifier (required)")
	_ = cmd.MarkFlagRequired("doctor")
	return cmd
}
