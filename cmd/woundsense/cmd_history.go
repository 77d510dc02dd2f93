package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
	"github.com/zatekoja/woundsense/backend/internal/domain/repositories"
	"github.com/zatekoja/woundsense/backend/pkg/imageref"
)

type historyEntry struct {
	*entities.AuditEntry
	ImageURL string `json:"image_url,omitempty"`
}

func newHistoryCmd(s *session) *cobra.Command {
	var (
		filter repositories.AssessmentFilter
		since  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past assessments, newest first",
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			if since != "" {
				t, err := time.ParseInLocation(time.DateOnly, since, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --since %q, want YYYY-MM-DD", since)
				}
				filter.Since = t
			}

			svc, err := s.analytics(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := svc.History(cmd.Context(), filter)
			if err != nil {
				return err
			}

			out := make([]historyEntry, len(entries))
			for i, e := range entries {
				out[i] = historyEntry{AuditEntry: e, ImageURL: imageref.PublicURL(e.ImageRef)}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		}),
	}

	f := cmd.Flags()
	f.StringVar(&filter.PatientID, "patient", "", "Only this patient")
	f.StringVar(&filter.DoctorID, "doctor", "", "Only this doctor")
	f.StringVar(&since, "since", "", "Only assessments on or after this date (YYYY-MM-DD)")
	f.IntVar(&filter.Limit, "limit", 0, "Maximum entries to return (0 for all)")
	return cmd
}
