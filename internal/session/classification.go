package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/consentscan/consentscan/internal/intercept"
	"github.com/consentscan/consentscan/internal/model"
)

// runClassification measures the visible effect of stripping the
// blocklisted cookie classes.
//
// Each round generates one random clickstream (baseline), replays it with
// cookies untouched (control), and replays it again with the blocklisted
// classes stripped from every Cookie header (experimental). The control
// replay exists to separate the stripping's effect from a page's natural
// nondeterminism: the offline comparator only trusts screenshot regions
// where baseline and control agree. Rounds repeat until the action budget
// cannot cover another full clickstream.
func (s *Session) runClassification(ctx context.Context, st *site) error {
	classes, err := s.cfg.BlocklistClasses()
	if err != nil {
		return fmt.Errorf("blocklist: %w", err)
	}
	strip := intercept.RemoveByClass(s.store, classes...)

	budget := s.cfg.TotalActions
	for n := 0; budget >= s.cfg.ClickstreamLength; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := filepath.Join(st.path, strconv.Itoa(n))
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create clickstream directory: %w", err)
		}
		snap := model.NewFeatureSnapshot()

		baseline, err := s.runClickstream(ctx, st, streamRun{
			phase:  phaseBaseline,
			dir:    dir,
			snap:   snap,
			length: s.cfg.ClickstreamLength,
		})
		if err != nil {
			return err
		}
		st.result.Clickstreams = append(st.result.Clickstreams, baseline)

		// The control replay carries the passthrough hook so both
		// replays run with interception on the wire path; only the
		// stripping itself differs.
		if _, err := s.runClickstream(ctx, st, streamRun{
			phase:  phaseControl,
			dir:    dir,
			snap:   snap,
			hook:   intercept.Passthrough,
			replay: baseline,
		}); err != nil {
			return err
		}

		if _, err := s.runClickstream(ctx, st, streamRun{
			phase:  phaseExperimental,
			dir:    dir,
			snap:   snap,
			hook:   strip,
			replay: baseline,
		}); err != nil {
			return err
		}

		if err := writeFeatures(dir, snap); err != nil {
			return err
		}
		budget -= len(baseline)
		st.events.printf("clickstream %d done, %d actions left", n, budget)
	}
	return nil
}
