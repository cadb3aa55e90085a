// Package hardfork implements the time-triggered, one-shot hardfork gating
// of spec.md §4.10: hardforks activate sequentially, only once the witness
// majority's hardfork-version vote clears the next hardfork's version and
// the wall clock has passed it, and each activation runs its migration
// exactly once.
//
// Grounded on beacon-chain/runtime/version's fork-schedule lookups
// (github.com/prysmaticlabs/prysm), adapted from slot-epoch fork boundaries
// to this chain's version+time-gated hardfork list.
package hardfork

import (
	"sort"
	"time"

	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "hardfork")

// Definition describes one numbered hardfork: the version string witnesses
// must vote for, the time it may first activate, and its one-shot
// migration.
type Definition struct {
	Number  uint32
	Version string
	Time    time.Time
	Migrate func(s *state.State) error
}

// Schedule is the ordered list of hardforks this build knows how to apply.
// internal/genesis populates it from the node's compiled-in list; it's
// ordered by Number ascending and never mutated after startup.
type Schedule []Definition

// HasHardfork is the "single monotonic counter consulted everywhere"
// predicate spec.md §4.10 calls for.
func HasHardfork(s *state.State, n uint32) bool {
	return s.HF().LastHardfork >= n
}

// witnessMajorityVersion returns the hardfork version string that at least
// (2/3 of scheduled witnesses + 1) have voted for, or "" if none clears that
// bar (spec.md §4.10 "witness majority's hardfork_version_vote").
func witnessMajorityVersion(s *state.State) string {
	sched := s.ActiveSchedule()
	counts := map[string]int{}
	total := 0
	for _, owner := range sched.CurrentShuffledWitnesses {
		w, ok := s.GetWitness(owner)
		if !ok || w.HardforkVersionVote == "" {
			continue
		}
		counts[w.HardforkVersionVote]++
		total++
	}
	if total == 0 {
		return ""
	}
	threshold := len(sched.CurrentShuffledWitnesses)*2/3 + 1
	versions := make([]string, 0, len(counts))
	for v := range counts {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	for _, v := range versions {
		if counts[v] >= threshold {
			return v
		}
	}
	return ""
}

// ProcessDueHardforks applies every hardfork in order whose version has
// cleared the witness majority and whose time has passed, running each
// migration exactly once (spec.md §4.4 step 8, §4.10).
func ProcessDueHardforks(s *state.State, schedule Schedule, now time.Time) error {
	hf := s.HF()
	majority := witnessMajorityVersion(s)

	for _, def := range schedule {
		if def.Number <= hf.LastHardfork {
			continue
		}
		if now.Before(def.Time) {
			break // schedule is ordered; nothing later can be due either
		}
		if majority == "" || versionLess(majority, def.Version) {
			break // witness majority hasn't adopted this version yet
		}

		log.WithField("hardfork", def.Number).WithField("version", def.Version).Info("applying hardfork")
		if def.Migrate != nil {
			if err := def.Migrate(s); err != nil {
				return err
			}
		}
		if err := s.Hardforks.Modify(hf.ID, func(h *types.HardforkProperties) {
			h.LastHardfork = def.Number
			h.CurrentHardforkVersion = def.Version
			h.ProcessedHardforks = append(h.ProcessedHardforks, now)
		}); err != nil {
			return err
		}
		hf = s.HF()
	}
	return nil
}

// versionLess does a dotted-triple comparison ("0.20.3" < "0.20.10"),
// falling back to a plain string compare for anything that doesn't parse,
// since a malformed vote should never block the schedule from making
// progress once enough witnesses genuinely upgrade.
func versionLess(a, b string) bool {
	pa, okA := parseVersion(a)
	pb, okB := parseVersion(b)
	if !okA || !okB {
		return a < b
	}
	for i := 0; i < 3; i++ {
		if pa[i] != pb[i] {
			return pa[i] < pb[i]
		}
	}
	return false
}

func parseVersion(v string) ([3]int, bool) {
	var out [3]int
	part, idx := 0, 0
	for _, r := range v {
		switch {
		case r == '.':
			if part >= 2 {
				return out, false
			}
			part++
		case r >= '0' && r <= '9':
			out[part] = out[part]*10 + int(r-'0')
			idx++
		default:
			return out, false
		}
	}
	return out, idx > 0
}
