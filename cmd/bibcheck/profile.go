package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bibcheck/internal/prof"
)

// startProfiling starts the profiles named by the persistent profiling
// flags. The returned session is nil when none is requested.
func startProfiling(cmd *cobra.Command) (*prof.Session, error) {
	var opts prof.Options
	for name, dst := range map[string]*string{
		"cpu-profile":   &opts.CPU,
		"mem-profile":   &opts.Heap,
		"runtime-trace": &opts.Trace,
	} {
		v, err := cmd.Flags().GetString(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		*dst = v
	}
	if !opts.Enabled() {
		return nil, nil
	}
	return prof.Start(opts)
}

func stopProfiling(s *settings, session *prof.Session) {
	if err := session.Stop(); err != nil {
		s.log.Warn("failed to write profiles", zap.Error(err))
	}
}
