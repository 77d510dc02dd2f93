package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zatekoja/woundsense/backend/internal/application/services"
	"github.com/zatekoja/woundsense/backend/internal/domain/entities"
)

type batchLine struct {
	ImageRef   string                     `json:"image_ref"`
	Result     *entities.AssessmentResult `json:"result,omitempty"`
	Error      string                     `json:"error,omitempty"`
	AuditError string                     `json:"audit_error,omitempty"`
}

func newBatchCmd(s *session) *cobra.Command {
	var (
		doctorID    string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch <image>...",
		Short: "Assess several wound images concurrently",
		Args:  cobra.MinimumNArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			p, err := s.pipeline(cmd.Context())
			if err != nil {
				return err
			}
			if concurrency <= 0 {
				concurrency = s.cfg.Pipeline.BatchConcurrency
			}

			reqs := make([]entities.AssessmentRequest, len(args))
			for i, ref := range args {
				reqs[i] = entities.AssessmentRequest{ImageRef: ref, DoctorID: doctorID}
			}

			items := services.NewBatchRunner(p, concurrency).Run(cmd.Context(), reqs)

			lines := make([]batchLine, len(items))
			failed := 0
			for i, it := range items {
				lines[i] = batchLine{ImageRef: it.Request.ImageRef, Result: it.Result}
				if it.Err != nil {
					lines[i].Error = it.Err.Error()
					failed++
				}
				if it.Result != nil && it.Result.AuditErr != nil {
					lines[i].AuditError = it.Result.AuditErr.Error()
				}
			}
			if err := writeJSON(cmd.OutOrStdout(), lines); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d assessments failed", failed, len(items))
			}
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&doctorID, "doctor", "", "Attending doctor identifier")
	f.IntVar(&concurrency, "concurrency", 0, "Parallel assessments (default BATCH_CONCURRENCY)")
	return cmd
}
