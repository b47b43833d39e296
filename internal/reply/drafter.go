// Package reply drafts answers to incoming mail, from a generative model when
// one is configured and from fixed per-tone templates otherwise.
package reply

import (
	"context"

	"go.uber.org/zap"

	"mailbuddy/internal/logger"
)

// Drafter never fails: any generator error falls back to Template.
type Drafter struct {
	gen    Generator
	logger *zap.SugaredLogger
}

// NewDrafter accepts a nil generator, in which case every draft is a template.
func NewDrafter(gen Generator, log *zap.SugaredLogger) *Drafter {
	return &Drafter{gen: gen, logger: logger.OrNop(log)}
}

// Draft returns the reply text and whether it came from the generator.
func (d *Drafter) Draft(ctx context.Context, req Request) (string, bool) {
	req.Tone = ParseTone(string(req.Tone))
	if d.gen != nil {
		text, err := d.gen.Generate(ctx, req)
		if err == nil {
			return text, true
		}
		d.logger.Warnw("reply generation failed, using template", "tone", req.Tone, "error", err)
	}
	return Template(req), false
}
