package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zombor/hospi-scanner/internal/scanning"
)

// Target receives payloads from Feed. *Controller implements it.
type Target interface {
	IsScanning() bool
	SubmitScannedText(raw string)
	ReportError(message string)
}

// Feed delivers payloads from r to t while t is scanning, dropping the rest.
// It returns nil once r is exhausted.
func Feed(ctx context.Context, r scanning.Reader, t Target) error {
	for {
		raw, err := r.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			t.ReportError(fmt.Sprintf("Error reading QR code: %v", err))
			return fmt.Errorf("reading scanned text: %w", err)
		}

		if !t.IsScanning() {
			slog.Debug("Dropping payload while not scanning", "size", len(raw))
			continue
		}
		t.SubmitScannedText(raw)
	}
}
