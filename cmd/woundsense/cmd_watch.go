package main

import (
	"github.com/spf13/cobra"

	"github.com/zatekoja/woundsense/backend/internal/domain/providers"
)

func newWatchCmd(s *session) *cobra.Command {
	var doctorID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream completed assessments as they are audited",
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			bus, err := s.eventBus(cmd.Context())
			if err != nil {
				return err
			}

			channel := providers.EventChannelAssessments
			if doctorID != "" {
				channel = providers.GetDoctorChannel(doctorID)
			}
			events, err := bus.Subscribe(cmd.Context(), channel)
			if err != nil {
				return err
			}

			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case event, ok := <-events:
					if !ok {
						return nil
					}
					if err := writeJSON(cmd.OutOrStdout(), event); err != nil {
						return err
					}
				}
			}
		}),
	}

	cmd.Flags().StringVar(&doctorID, "doctor", "", "Only this doctor's assessments")
	return cmd
}
