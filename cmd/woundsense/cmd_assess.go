package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
)

type assessOutput struct {
	*entities.AssessmentResult
	AuditError string `json:"audit_error,omitempty"`
}

func newAssessCmd(s *session) *cobra.Command {
	var req entities.AssessmentRequest

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess one wound image",
		RunE: s.run(func(cmd *cobra.Command, _ []string) error {
			p, err := s.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			result, err := p.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := assessOutput{AssessmentResult: result}
			if result.AuditErr != nil {
				log.Warn().Err(result.AuditErr).Str("assessment_id", result.AssessmentID).Msg("assessment was not fully audited")
				out.AuditError = result.AuditErr.Error()
			}
			return writeJSON(cmd.OutOrStdout(), out)
		}),
	}

	f := cmd.Flags()
	f.StringVar(&req.ImageRef, "image", "", "Path to the wound image (required)")
	f.StringVar(&req.Patient.ID, "patient-id", "", "Patient identifier")
	f.StringVar(&req.Patient.Name, "patient-name", "", "Patient name")
	f.StringVar(&req.DoctorID, "doctor", "", "Attending doctor identifier")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}
