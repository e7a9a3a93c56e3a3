package lifecycle

import (
	"context"
	"errors"
	"log"
	"strings"

	"visitor-register-backend/internal/ident"
	"visitor-register-backend/internal/model"
	"visitor-register-backend/internal/store"
)

// ScanOutcome classifies the result of a decoded QR code or badge.
type ScanOutcome string

const (
	OutcomeExited        ScanOutcome = "exited"
	OutcomeAlreadyExited ScanOutcome = "already_exited"
	OutcomeNotFound      ScanOutcome = "not_found"
	OutcomeInvalid       ScanOutcome = "invalid"
	OutcomeError         ScanOutcome = "error"
)

// ScanResult is returned for every decoded text.
type ScanResult struct {
	Outcome ScanOutcome  `json:"outcome"`
	Entry   *model.Entry `json:"entry,omitempty"`
	Err     error        `json:"-"`
}

// Scanner is implemented by anything that can act on decoded text from a
// camera, a handheld reader or a badge.
type Scanner interface {
	OnDecoded(ctx context.Context, text string) ScanResult
}

var _ Scanner = (*Controller)(nil)

// OnDecoded resolves text as an entry id, or as an entry number when it
// looks like one, and checks the visitor out.
func (c *Controller) OnDecoded(ctx context.Context, text string) ScanResult {
	res := c.scan(ctx, strings.TrimSpace(text))
	c.observe(res.Outcome)
	return res
}

func (c *Controller) scan(ctx context.Context, code string) ScanResult {
	if code == "" {
		return ScanResult{Outcome: OutcomeInvalid}
	}

	id, err := c.resolve(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Printf("Scan of unknown code %q", code)
			return ScanResult{Outcome: OutcomeNotFound}
		}
		return ScanResult{Outcome: OutcomeError, Err: err}
	}

	entry, err := c.Exit(ctx, id, nil)
	switch {
	case err == nil:
		return ScanResult{Outcome: OutcomeExited, Entry: entry}
	case errors.Is(err, store.ErrAlreadyExited):
		return ScanResult{Outcome: OutcomeAlreadyExited, Entry: entry}
	case errors.Is(err, store.ErrNotFound):
		return ScanResult{Outcome: OutcomeNotFound}
	default:
		return ScanResult{Outcome: OutcomeError, Err: err}
	}
}

func (c *Controller) resolve(ctx context.Context, code string) (string, error) {
	if ident.NumberPattern.MatchString(code) {
		entry, err := c.store.GetByNumber(ctx, code)
		if err != nil {
			return "", err
		}
		return entry.ID, nil
	}
	entry, err := c.store.GetByID(ctx, code)
	if err != nil {
		return "", err
	}
	return entry.ID, nil
}
