// Package witness implements the block-producer scheduler of spec.md §4.5:
// per-round shuffles across top/timeshare/miner classes, virtual-time
// accounting for the timeshare slot, and slot arithmetic.
//
// Grounded on beacon-chain/core/helpers' committee-shuffle helpers
// (github.com/prysmaticlabs/prysm), adapted from per-epoch validator
// shuffling to the Graphene-family per-round witness shuffle.
package witness

import (
	"sort"
	"time"

	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/amount"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "witness")

// BlockInterval is the fixed spacing between scheduled slots.
const BlockInterval = 3 * time.Second

// VirtualScheduleLap is the fixed-point span each witness's virtual
// position advances across in one lap of the timeshare wheel (spec.md §4.5
// "Virtual time advances per witness by (virtual_last_update +
// (VIRTUAL_SCHEDULE_LAP - virtual_position)/(votes+1))").
var VirtualScheduleLap = types.NewBigRatio(1<<62, 1)

// GetSlotAtTime implements spec.md §4.5's slot arithmetic: slot 0 is
// headTime itself, slot N is headTime + N*interval; a time strictly before
// slot 1 maps to slot 0.
func GetSlotAtTime(headTime time.Time, t time.Time) uint64 {
	if t.Before(headTime.Add(BlockInterval)) {
		return 0
	}
	return uint64(t.Sub(headTime) / BlockInterval)
}

// GetSlotTime returns the wall-clock time of slot N relative to headTime.
func GetSlotTime(headTime time.Time, slot uint64) time.Time {
	if slot == 0 {
		return headTime
	}
	return headTime.Add(time.Duration(slot) * BlockInterval)
}

// WitnessAtSlot resolves which witness owns slotsFromHead slots past the
// current aslot, consulting the active schedule's shuffled order (spec.md
// §4.4 step 2 "signer matches scheduled witness for the slot").
func WitnessAtSlot(s *state.State, slotsFromHead uint64) (types.AccountName, error) {
	sched := s.ActiveSchedule()
	n := len(sched.CurrentShuffledWitnesses)
	if n == 0 {
		return "", errs.New(errs.KindFatal, "witness schedule is empty")
	}
	gd := s.GD()
	currentSlot := gd.CurrentASlot
	idx := int((currentSlot + slotsFromHead) % uint64(n))
	return sched.CurrentShuffledWitnesses[idx], nil
}

// UpdateRequired reports whether the round boundary has been reached
// (spec.md §4.5 "At every round boundary (when current_aslot %
// num_scheduled_witnesses == 0)").
func UpdateRequired(s *state.State) bool {
	gd := s.GD()
	sched := s.ActiveSchedule()
	if sched.NumScheduledWitnesses == 0 {
		return true
	}
	return gd.CurrentASlot%uint64(sched.NumScheduledWitnesses) == 0
}

// UpdateSchedule rebuilds the active schedule: selects the top-N witnesses
// by votes, assigns one timeshare slot by virtual-time priority, reserves
// miner slots (left empty unless PoW is enabled, which this chain never
// does — see pkg/ops.Pow), shuffles deterministically from the head block
// id, and recomputes the median witness-reported chain properties.
func UpdateSchedule(s *state.State, headID types.BlockID, now time.Time) error {
	var all []*types.Witness
	s.Witnesses.Each(func(id types.ID, w *types.Witness) bool {
		all = append(all, w)
		return true
	})
	if len(all) == 0 {
		return errs.New(errs.KindPrecondition, "cannot build a witness schedule with no witnesses")
	}

	sched := s.ActiveSchedule()
	topCount := int(sched.TopWitnessCount)
	if topCount == 0 || topCount > len(all) {
		topCount = len(all)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Votes.Cmp(all[j].Votes) > 0 })
	top := append([]*types.Witness{}, all[:topCount]...)

	timeshareCandidates := all
	if topCount < len(all) {
		timeshareCandidates = all[topCount:]
	}
	timeshare := pickTimeshareWitness(timeshareCandidates)

	slots := make([]types.AccountName, 0, len(top)+1)
	for _, w := range top {
		slots = append(slots, w.Owner)
	}
	if timeshare != nil {
		slots = append(slots, timeshare.Owner)
	}

	shuffled := deterministicShuffle(slots, headID)

	if err := s.Schedule.Modify(1, func(sc *types.WitnessSchedule) {
		sc.CurrentShuffledWitnesses = shuffled
		sc.NumScheduledWitnesses = uint8(len(shuffled))
		sc.MedianProps = medianProperties(all)
		sc.CurrentShuffleBlockNum = headID.BlockNum()
	}); err != nil {
		return err
	}

	if timeshare != nil {
		return advanceVirtualTime(s, timeshare, now)
	}
	return nil
}

// pickTimeshareWitness selects the witness with the smallest next scheduled
// virtual time (spec.md §4.5 "the witness with smallest next scheduled
// virtual time wins the timeshare slot").
func pickTimeshareWitness(candidates []*types.Witness) *types.Witness {
	var best *types.Witness
	for _, w := range candidates {
		if w.VirtualScheduledTime == nil {
			continue
		}
		if best == nil || w.VirtualScheduledTime.Cmp(best.VirtualScheduledTime) < 0 {
			best = w
		}
	}
	return best
}

// advanceVirtualTime applies spec.md §4.5's virtual-time recurrence to the
// witness that just won the timeshare slot:
// virtual_last_update + (VIRTUAL_SCHEDULE_LAP - virtual_position)/(votes+1).
func advanceVirtualTime(s *state.State, w *types.Witness, now time.Time) error {
	votesPlusOne := w.Votes.Value.Uint64() + 1
	delta := VirtualScheduleLap.Sub(w.VirtualPosition).DivInt64(int64(votesPlusOne))
	next := w.VirtualScheduledTime.Add(delta)
	return s.Witnesses.Modify(w.ID, func(ww *types.Witness) {
		ww.VirtualLastUpdate = now
		ww.VirtualScheduledTime = next
		ww.VirtualPosition = ww.VirtualPosition.Add(delta)
	})
}

// deterministicShuffle reorders names using the head block id as a seed, so
// every node replaying the same chain arrives at the same schedule without
// needing to exchange randomness (spec.md §4.5 only specifies the
// selection classes, leaving the shuffle itself an implementation detail).
func deterministicShuffle(names []types.AccountName, seed types.BlockID) []types.AccountName {
	out := append([]types.AccountName{}, names...)
	n := len(out)
	h := uint64(0)
	for _, b := range seed {
		h = h*31 + uint64(b)
	}
	for i := n - 1; i > 0; i-- {
		h = h*6364136223846793005 + 1442695040888963407
		j := int(h % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func medianProperties(witnesses []*types.Witness) types.ChainProperties {
	if len(witnesses) == 0 {
		return types.ChainProperties{}
	}
	fees := make([]uint64, len(witnesses))
	sizes := make([]uint32, len(witnesses))
	rates := make([]uint16, len(witnesses))
	for i, w := range witnesses {
		if w.Props.AccountCreationFee.Value != nil {
			fees[i] = w.Props.AccountCreationFee.Value.Uint64()
		}
		sizes[i] = w.Props.MaximumBlockSize
		rates[i] = w.Props.SBDInterestRate
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	sort.Slice(rates, func(i, j int) bool { return rates[i] < rates[j] })

	mid := len(witnesses) / 2
	sym := witnesses[0].Props.AccountCreationFee.Symbol
	return types.ChainProperties{
		AccountCreationFee: amount.New(sym, fees[mid]),
		MaximumBlockSize:   sizes[mid],
		SBDInterestRate:    rates[mid],
	}
}
