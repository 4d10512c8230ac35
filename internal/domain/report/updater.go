package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Marker persists the reported state of a patient.
type Marker interface {
	MarkReported(ctx context.Context, id, pdfPath, reportedOn string) error
}

// Updater flags a patient as reported once the artifact exists. Failures are
// returned as warnings, never as errors.
type Updater struct {
	marker Marker
	logger zerolog.Logger
}

func NewUpdater(m Marker, logger zerolog.Logger) *Updater {
	return &Updater{marker: m, logger: logger}
}

// MarkReported sets report_generated, pdf_path and reported_on. Calling it
// again with the same values leaves the record unchanged.
func (u *Updater) MarkReported(ctx context.Context, patientID, pdfPath, reportedOn string) (warning string) {
	if err := u.marker.MarkReported(ctx, patientID, pdfPath, reportedOn); err != nil {
		u.logger.Warn().Err(err).Str("patient_id", patientID).Msg("record store update failed")
		return fmt.Sprintf("report generated but patient record was not updated: %v", err)
	}
	return ""
}
