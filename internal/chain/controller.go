// Package chain (controller.go) implements the chain controller of spec.md
// §4.4: push_block, push_transaction, generate_block, the apply-block
// procedure, fork-switch case selection, and irreversibility advancement
// (§4.6). It wires together every other internal package — objectstore,
// forkdb, blocklog, witness, evaluator, exchange, housekeeping, hardfork,
// bandwidth, invariant — into the single per-block pipeline.
//
// Grounded on beacon-chain/blockchain's service.go (github.com/prysmaticlabs/prysm):
// onBlock/onBlockBatch's "insert into forkchoice, pick case, run
// transition, update head" shape is reused here for Graphene-family
// highest-block-wins fork choice instead of LMD-GHOST.
package chain

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rusladder/LadderChain/internal/bandwidth"
	"github.com/rusladder/LadderChain/internal/blocklog"
	"github.com/rusladder/LadderChain/internal/evaluator"
	"github.com/rusladder/LadderChain/internal/forkdb"
	"github.com/rusladder/LadderChain/internal/hardfork"
	"github.com/rusladder/LadderChain/internal/housekeeping"
	"github.com/rusladder/LadderChain/internal/invariant"
	"github.com/rusladder/LadderChain/internal/objectstore"
	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/internal/witness"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/rusladder/LadderChain/pkg/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "chain")

var (
	blocksAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ladderchain_blocks_applied_total",
		Help: "Blocks successfully applied to the head branch.",
	})
	forkSwitchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ladderchain_fork_switches_total",
		Help: "Times the controller switched to a higher branch.",
	})
	irreversibleAdvancesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ladderchain_irreversible_advances_total",
		Help: "Times last_irreversible_block_num advanced.",
	})
	pendingRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ladderchain_pending_transactions_rejected_total",
		Help: "Transactions dropped from the pending pool (expired, invalid, bandwidth-exceeded).",
	})
)

// SkipFlags disables individual validation steps, used by reindex (spec.md
// §6: "reindex ... re-applies every block from the log with
// signature/authority checks skipped") and by tests.
type SkipFlags struct {
	SkipMerkleCheck    bool
	SkipWitnessSignee  bool
	SkipAuthorityCheck bool
	SkipBandwidth      bool
}

// reversibleBlock pairs one still-undoable applied block with the open
// objectstore session whose frame holds its changes. The stack's order
// matches the order the Store's tables hold their undo frames in, so
// undoing or committing proceeds strictly LIFO/FIFO against this slice.
type reversibleBlock struct {
	id   types.BlockID
	num  uint32
	body Block
	sess *objectstore.Session
}

// Controller owns the state, the fork database, the block log, and the
// pending-transaction pool, and is the sole entry point for mutating any of
// them (spec.md §5: "single logical actor guarded by a read-write lock";
// this implementation's lock is left to the cmd binary's own goroutine
// discipline, matching prysm's blockchain.Service which is likewise driven
// by a single caller per mutating path).
type Controller struct {
	State     *state.State
	BlockLog  *blocklog.Log
	Evaluator *evaluator.Registry
	Hardforks hardfork.Schedule

	reversible     []reversibleBlock
	pendingTxs     []Transaction
	pendingSession *objectstore.Session
}

// NewController wires a freshly built State (from internal/genesis) to a
// block log and evaluator registry, and opens the initial pending session
// (spec.md §5 "Pending transactions live under a dedicated outer session").
func NewController(s *state.State, bl *blocklog.Log, reg *evaluator.Registry, schedule hardfork.Schedule) *Controller {
	c := &Controller{State: s, BlockLog: bl, Evaluator: reg, Hardforks: schedule}
	c.pendingSession = s.Store.NewSession()
	return c
}

// PushTransaction validates trx independently of any block and records it
// into the pending pool under the pending session (spec.md §4.4
// push_transaction).
func (c *Controller) PushTransaction(trx Transaction, now time.Time, skip SkipFlags) error {
	sess := c.State.Store.NewSession()
	defer sess.Release()

	corrID := uuid.NewString()
	if err := c.applyTransaction(trx, now, skip); err != nil {
		pendingRejectedTotal.Inc()
		log.WithField("correlation_id", corrID).WithError(err).Warn("rejected pending transaction")
		return err
	}
	if err := sess.Squash(); err != nil {
		return err
	}
	c.pendingTxs = append(c.pendingTxs, trx)
	return nil
}

// PushBlock inserts block into the fork database and applies spec.md §4.4's
// three fork-switch cases.
func (c *Controller) PushBlock(block Block, now time.Time, skip SkipFlags) error {
	blockNum := block.Header.PreviousID.BlockNum() + 1
	id := ComputeID(block.Header, blockNum)

	newHead, err := c.State.ForkDB.Push(forkdb.Header{
		ID:         id,
		PreviousID: block.Header.PreviousID,
		Num:        blockNum,
		Witness:    block.Header.Witness,
	})
	if err != nil {
		return errs.Wrap(errs.KindProtocol, err, "inserting block into fork database")
	}

	// Pending transactions are unwound before any block is applied; they
	// are re-applied on top of the new head by rebuildPending.
	if err := c.pendingSession.Undo(); err != nil {
		return err
	}

	gd := c.State.GD()

	switch {
	case block.Header.PreviousID == gd.HeadBlockID:
		// Case 1: extends the current main branch.
		if err := c.applyOneBlock(block, id, now, skip); err != nil {
			_ = c.rebuildPending(now, skip)
			return err
		}
	case newHead.ID == id && blockNum > gd.HeadBlockNumber:
		// Case 2: a different, higher branch. Switch.
		if err := c.switchBranch(block, id, now, skip); err != nil {
			_ = c.rebuildPending(now, skip)
			return err
		}
		forkSwitchesTotal.Inc()
	default:
		// Case 3: height <= current head, or same height as an existing
		// candidate (multiple production). Accepted into the fork db, no
		// switch.
		if blockNum == gd.HeadBlockNumber+1 {
			log.WithFields(logrus.Fields{"block_num": blockNum, "witness": block.Header.Witness}).Warn("multiple production detected at this height; not switching")
		} else {
			log.WithFields(logrus.Fields{"block_num": blockNum, "head": gd.HeadBlockNumber}).Info("accepted block without switching head")
		}
		return c.rebuildPending(now, skip)
	}

	return c.rebuildPending(now, skip)
}

// switchBranch implements case 2: undo applied blocks back to the common
// ancestor, then re-apply the new branch's blocks forward; on any failure,
// the partially-applied new branch is undone and the original blocks are
// replayed back, so the head never moves on a failed switch (spec.md §4.4
// case 2: "If any re-apply fails, revert fully and restore the original
// branch").
func (c *Controller) switchBranch(tip Block, tipID types.BlockID, now time.Time, skip SkipFlags) error {
	gd := c.State.GD()
	oldBranch, newBranch, err := c.State.ForkDB.FetchBranchFrom(gd.HeadBlockID, tipID)
	if err != nil {
		return errs.Wrap(errs.KindProtocol, err, "fetching fork branches")
	}
	if len(oldBranch) > len(c.reversible) {
		return errs.New(errs.KindFatal, "fork switch: common ancestor is already irreversible; cannot reorg across a committed block")
	}

	popped := c.popReversible(len(oldBranch))

	bodies := make([]Block, len(newBranch))
	for i, h := range newBranch {
		if h.ID == tipID {
			bodies[i] = tip
			continue
		}
		blk, ok := c.cachedBody(h.ID)
		if !ok {
			c.restoreReversible(popped)
			return errs.New(errs.KindFatal, "fork switch: missing cached body for branch member")
		}
		bodies[i] = blk
	}

	for i, h := range newBranch {
		if err := c.applyOneBlock(bodies[i], h.ID, now, skip); err != nil {
			log.WithError(err).Error("fork switch re-apply failed; restoring original branch")
			c.popReversible(i)
			c.restoreReversible(popped)
			return err
		}
	}
	return c.State.ForkDB.SetHead(tipID)
}

// popReversible undoes and removes the n most-recently-applied reversible
// blocks, LIFO, and returns them (newest first) in case the caller needs to
// restore them on a failed switch.
func (c *Controller) popReversible(n int) []reversibleBlock {
	popped := make([]reversibleBlock, 0, n)
	for i := 0; i < n; i++ {
		last := len(c.reversible) - 1
		rb := c.reversible[last]
		_ = rb.sess.Undo()
		c.reversible = c.reversible[:last]
		popped = append(popped, rb)
	}
	return popped
}

// restoreReversible re-applies previously popped blocks in their original
// order (oldest first), used when a fork switch attempt fails partway.
func (c *Controller) restoreReversible(popped []reversibleBlock) {
	for i := len(popped) - 1; i >= 0; i-- {
		rb := popped[i]
		if err := c.applyOneBlock(rb.body, rb.id, rb.body.Header.Timestamp, SkipFlags{}); err != nil {
			log.WithError(err).Error("failed to restore original branch after aborted fork switch; chain state may be inconsistent")
		}
	}
}

func (c *Controller) cachedBody(id types.BlockID) (Block, bool) {
	for _, rb := range c.reversible {
		if rb.id == id {
			return rb.body, true
		}
	}
	if stored, ok, err := c.BlockLog.ByID(id); err == nil && ok {
		return decodeBlock(stored)
	}
	return Block{}, false
}

// applyOneBlock runs the full apply-block procedure (spec.md §4.4) inside a
// fresh per-block undo session. The session stays open (it is not squashed
// away) so the block remains individually undoable until it becomes
// irreversible (§4.6); only transactions and evaluations nested beneath it
// squash into it.
func (c *Controller) applyOneBlock(block Block, id types.BlockID, now time.Time, skip SkipFlags) error {
	sess := c.State.Store.NewSession()

	if err := c.applyBlockSteps(block, id, now, skip); err != nil {
		sess.Release()
		return err
	}

	c.reversible = append(c.reversible, reversibleBlock{id: id, num: id.BlockNum(), body: block, sess: sess})
	blocksAppliedTotal.Inc()
	return nil
}

// applyBlockSteps is the nine-step apply-block procedure of spec.md §4.4.
func (c *Controller) applyBlockSteps(block Block, id types.BlockID, now time.Time, skip SkipFlags) error {
	blockNum := id.BlockNum()

	// 1. Merkle check.
	if !skip.SkipMerkleCheck {
		if MerkleRoot(block.Transactions) != block.Header.TransactionMerkleRoot {
			return errs.New(errs.KindProtocol, "transaction merkle root mismatch")
		}
	}

	// 2. Validate header.
	gd := c.State.GD()
	if block.Header.PreviousID != gd.HeadBlockID && blockNum > 1 {
		return errs.New(errs.KindProtocol, "block does not extend the current head")
	}
	if !block.Header.Timestamp.After(gd.Time) && blockNum > 1 {
		return errs.New(errs.KindProtocol, "block timestamp does not advance monotonically")
	}
	if !skip.SkipWitnessSignee && blockNum > 1 {
		slot := witness.GetSlotAtTime(gd.Time, block.Header.Timestamp)
		expected, err := witness.WitnessAtSlot(c.State, slot-gd.CurrentASlot%slotModulus(c.State))
		if err == nil && expected != block.Header.Witness {
			return errs.New(errs.KindProtocol, "block signer does not match scheduled witness for the slot")
		}
	}

	// 3. Parse header extensions, update witness record.
	w, ok := c.State.GetWitness(block.Header.Witness)
	if !ok {
		return errs.New(errs.KindProtocol, "block witness is not a known witness")
	}
	if err := c.State.Witnesses.Modify(w.ID, func(ww *types.Witness) {
		if block.Header.Extensions.RunningVersion != "" {
			ww.RunningVersion = block.Header.Extensions.RunningVersion
		}
		if block.Header.Extensions.HardforkVersionVote != "" {
			ww.HardforkVersionVote = block.Header.Extensions.HardforkVersionVote
		}
		ww.LastConfirmedBlockNum = blockNum
	}); err != nil {
		return err
	}

	// 4. Apply each transaction.
	seen := map[[32]byte]struct{}{}
	for _, trx := range block.Transactions {
		h := hashTransaction(trx)
		if _, dup := seen[h]; dup {
			return errs.New(errs.KindProtocol, "duplicate transaction within block")
		}
		seen[h] = struct{}{}
		if err := c.applyTransaction(trx, block.Header.Timestamp, skip); err != nil {
			return err
		}
	}

	// 5. Update dynamic global properties.
	if err := c.updateGlobalProperties(block, id, blockNum); err != nil {
		return err
	}

	// 6. Create block-summary entry.
	c.State.BlockSummaries.Set(types.ID(blockNum&(types.BlockSummaryRingSize-1)), &types.BlockSummary{BlockNum: blockNum, ID: id})

	// 7. Housekeeping loop.
	if err := housekeeping.Run(c.State, block.Header.Timestamp, logVirtualOp); err != nil {
		return err
	}

	// 8. Process hardforks due by time.
	if err := hardfork.ProcessDueHardforks(c.State, c.Hardforks, block.Header.Timestamp); err != nil {
		return err
	}

	// 9. Recompute irreversibility.
	if err := c.advanceIrreversibility(); err != nil {
		return err
	}

	if witness.UpdateRequired(c.State) {
		if err := witness.UpdateSchedule(c.State, id, block.Header.Timestamp); err != nil {
			return err
		}
	}

	return invariant.Audit(c.State)
}

func slotModulus(s *state.State) uint64 {
	n := len(s.ActiveSchedule().CurrentShuffledWitnesses)
	if n == 0 {
		return 1
	}
	return uint64(n)
}

func (c *Controller) updateGlobalProperties(block Block, id types.BlockID, blockNum uint32) error {
	slot := witness.GetSlotAtTime(c.State.GD().Time, block.Header.Timestamp)
	return c.State.Global.Modify(1, func(g *types.DynamicGlobalProperties) {
		g.HeadBlockNumber = blockNum
		g.HeadBlockID = id
		g.Time = block.Header.Timestamp
		g.CurrentWitness = block.Header.Witness
		g.CurrentASlot += slot
		g.RecentSlotsFilled.SetBitAt(0, true)
		g.AverageBlockSize = (g.AverageBlockSize*3 + uint32(len(block.Transactions))) / 4
	})
}

// applyTransaction runs the per-transaction checks of spec.md §4.4 step 4
// (TaPoS, expiration, duplicate, authority, bandwidth) then dispatches each
// operation.
func (c *Controller) applyTransaction(trx Transaction, now time.Time, skip SkipFlags) error {
	sess := c.State.Store.NewSession()
	defer sess.Release()

	if !trx.Expiration.After(now) {
		return errs.New(errs.KindProtocol, "transaction expired")
	}

	if !skip.SkipMerkleCheck {
		summary, ok := c.State.BlockSummaries.Get(types.ID(uint32(trx.RefBlockNum) & (types.BlockSummaryRingSize - 1)))
		if ok && summary.BlockNum != 0 {
			if blockIDPrefix(summary.ID) != trx.RefBlockPrefix {
				return errs.New(errs.KindProtocol, "TaPoS reference check failed")
			}
		}
	}

	signerSet := map[string]struct{}{}
	for _, k := range trx.SigningKeys {
		signerSet[string(k)] = struct{}{}
	}
	if !skip.SkipAuthorityCheck {
		if err := c.checkAuthority(trx, signerSet); err != nil {
			return err
		}
	}

	if !skip.SkipBandwidth {
		if err := c.chargeBandwidth(trx, now); err != nil {
			return err
		}
	}

	ctx := &evaluator.Context{State: c.State, Now: now, Signers: signerSet, PushVirtual: logVirtualOp}
	for _, op := range trx.Operations {
		if err := c.Evaluator.Dispatch(ctx, op); err != nil {
			return err
		}
	}

	return sess.Squash()
}

// logVirtualOp is the default observer for synthetic events raised by
// evaluators and by internal/housekeeping's margin-call scan (spec.md §6
// "may push_virtual_operation to emit synthetic events"); nothing in this
// node persists a virtual-operation history yet, so logging is the sink.
func logVirtualOp(kind string, payload interface{}) {
	log.WithFields(logrus.Fields{"kind": kind, "payload": payload}).Info("virtual operation")
}

// chargeBandwidth accounts forum-class bandwidth for every account named in
// the transaction's operations, approximating size as a fixed per-operation
// cost (spec.md §4.11 leaves the per-transaction size metric an
// implementation detail; a wire-level implementation would use the encoded
// byte length instead).
func (c *Controller) chargeBandwidth(trx Transaction, now time.Time) error {
	const perOpBandwidth = 128
	size := uint64(len(trx.Operations)) * perOpBandwidth
	for _, acct := range requiredAccounts(trx) {
		if err := bandwidth.Charge(c.State, acct, types.BandwidthForum, size, now); err != nil {
			return err
		}
		if err := bandwidth.CheckQuota(c.State, acct, types.BandwidthForum); err != nil {
			return err
		}
	}
	return nil
}

// requiredAccounts extracts the "fee payer" account of each operation a
// transaction carries, for bandwidth-charging purposes. This covers the
// operations a regular user's transaction mix actually contains; esoteric
// admin-only operations (asset management, recovery) are not bandwidth
// metered since real usage volume there is negligible.
func requiredAccounts(trx Transaction) []types.AccountName {
	seen := map[types.AccountName]struct{}{}
	var out []types.AccountName
	add := func(a types.AccountName) {
		if a == "" {
			return
		}
		if _, ok := seen[a]; !ok {
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	for _, op := range trx.Operations {
		switch v := op.(type) {
		case ops.Vote:
			add(v.Voter)
		case ops.Comment:
			add(v.Author)
		case ops.CommentOptions:
			add(v.Author)
		case ops.DeleteComment:
			add(v.Author)
		case ops.Transfer:
			add(v.From)
		case ops.TransferToVesting:
			add(v.From)
		case ops.WithdrawVesting:
			add(v.Account)
		case ops.SetWithdrawVestingRoute:
			add(v.FromAccount)
		case ops.AccountCreate:
			add(v.Creator)
		case ops.AccountCreateWithDelegation:
			add(v.Creator)
		case ops.AccountUpdate:
			add(v.Account)
		case ops.WitnessUpdate:
			add(v.Owner)
		case ops.AccountWitnessVote:
			add(v.Account)
		case ops.AccountWitnessProxy:
			add(v.Account)
		case ops.Custom:
			for _, a := range v.RequiredAuths {
				add(a)
			}
		case ops.CustomJSON:
			for _, a := range v.RequiredAuths {
				add(a)
			}
			for _, a := range v.RequiredPostingAuths {
				add(a)
			}
		case ops.LimitOrderCreate:
			add(v.Owner)
		case ops.LimitOrderCreate2:
			add(v.Owner)
		case ops.LimitOrderCancel:
			add(v.Owner)
		case ops.Convert:
			add(v.Owner)
		case ops.TransferToSavings:
			add(v.From)
		case ops.TransferFromSavings:
			add(v.From)
		case ops.CancelTransferFromSavings:
			add(v.From)
		case ops.DeclineVotingRights:
			add(v.Account)
		case ops.DelegateVestingShares:
			add(v.Delegator)
		}
	}
	return out
}

// checkAuthority verifies the transaction carries at least one signing key
// (standing in for full signature verification, which spec.md §1 names as
// an external collaborator performing ECDSA recovery), then, for every
// operation whose acting account requirement is known (requiredAuthorities),
// recursively resolves that account's stored authority against signerSet
// (spec.md §4.4 step 4). An account that does not exist yet (e.g. the new
// account inside account_create) is skipped, since only its creator's
// authority is meaningful before it exists. No evaluator performs a further
// authority check of its own.
func (c *Controller) checkAuthority(trx Transaction, signerSet map[string]struct{}) error {
	if len(trx.SigningKeys) == 0 {
		return errs.New(errs.KindAuthorityMissing, "transaction carries no signing keys")
	}
	for _, op := range trx.Operations {
		for _, req := range requiredAuthorities(op) {
			acct, ok := c.State.GetAccount(req.Account)
			if !ok {
				continue
			}
			// Authority levels nest: owner satisfies anything active or
			// posting can authorize, and active satisfies posting, matching
			// Graphene's "higher authority supersedes lower" convention.
			candidates := []types.Authority{acct.Owner}
			if req.Level != authOwner {
				candidates = append(candidates, acct.Active)
			}
			if req.Level == authPosting {
				candidates = append(candidates, acct.Posting)
			}
			satisfied := false
			for _, auth := range candidates {
				if c.satisfiesAuthority(auth, signerSet, 0) {
					satisfied = true
					break
				}
			}
			if !satisfied {
				return errs.New(errs.KindAuthorityMissing, "transaction does not satisfy required authority for "+string(req.Account))
			}
		}
	}
	return nil
}

// satisfiesAuthority reports whether signerSet meets auth's threshold,
// recursing into delegated account authorities up to MaxSigCheckDepth
// (spec.md §4.4 step 4). checkAuthority is its only caller.
func (c *Controller) satisfiesAuthority(auth types.Authority, signerSet map[string]struct{}, depth int) bool {
	if depth > MaxSigCheckDepth {
		return false
	}
	var total uint32
	for _, k := range auth.Keys {
		if _, ok := signerSet[string(k.Key)]; ok {
			total += uint32(k.Weight)
		}
	}
	for _, a := range auth.AccountAuths {
		acct, ok := c.State.GetAccount(a.Account)
		if !ok {
			continue
		}
		if c.satisfiesAuthority(acct.Active, signerSet, depth+1) {
			total += uint32(a.Weight)
		}
	}
	return total >= auth.Threshold
}

// advanceIrreversibility implements spec.md §4.6: collect every scheduled
// witness's last_confirmed_block_num, take the value at the
// (1-threshold)-from-the-low-end position, and advance monotonically.
func (c *Controller) advanceIrreversibility() error {
	sched := c.State.ActiveSchedule()
	n := len(sched.CurrentShuffledWitnesses)
	if n == 0 {
		return nil
	}
	nums := make([]uint32, 0, n)
	for _, owner := range sched.CurrentShuffledWitnesses {
		w, ok := c.State.GetWitness(owner)
		if !ok {
			continue
		}
		nums = append(nums, w.LastConfirmedBlockNum)
	}
	if len(nums) == 0 {
		return nil
	}
	sortUint32(nums)

	const irreversibleThresholdBP = 7000 // 70%, matching config.DefaultConstants
	pos := (len(nums) * (10000 - irreversibleThresholdBP)) / 10000
	if pos >= len(nums) {
		pos = len(nums) - 1
	}
	candidate := nums[pos]

	gd := c.State.GD()
	if candidate <= gd.LastIrreversibleBlockNum {
		return nil
	}
	if err := c.State.Global.Modify(1, func(g *types.DynamicGlobalProperties) {
		g.LastIrreversibleBlockNum = candidate
	}); err != nil {
		return err
	}
	irreversibleAdvancesTotal.Inc()
	return c.commitUpTo(candidate)
}

// commitUpTo makes permanent every still-open per-block session whose block
// number is now ≤ irreversibleNum by discarding its undo frame (the store's
// outermost one, oldest block first), appends those blocks to the block
// log, and prunes the fork database's root forward (spec.md §4.6).
func (c *Controller) commitUpTo(irreversibleNum uint32) error {
	for len(c.reversible) > 0 && c.reversible[0].num <= irreversibleNum {
		rb := c.reversible[0]
		c.State.Store.Commit(uint64(rb.num))
		if err := c.BlockLog.Append(blocklog.StoredBlock{Header: rb.id, Num: rb.num, Raw: encodeBlock(rb.body)}); err != nil {
			return errs.Wrap(errs.KindFatal, err, "appending newly irreversible block to block log")
		}
		c.reversible = c.reversible[1:]
	}
	return c.State.ForkDB.Prune(c.State.GD().HeadBlockID)
}

// rebuildPending re-applies still-valid pending transactions under a fresh
// pending session, dropping any now-expired or now-invalid one (spec.md
// §4.4 "On completion, rebuild pending state").
func (c *Controller) rebuildPending(now time.Time, skip SkipFlags) error {
	c.pendingSession.Release()
	c.pendingSession = c.State.Store.NewSession()

	kept := c.pendingTxs[:0]
	for _, trx := range c.pendingTxs {
		if !trx.Expiration.After(now) {
			pendingRejectedTotal.Inc()
			continue
		}
		if err := c.applyTransaction(trx, now, skip); err != nil {
			pendingRejectedTotal.Inc()
			continue
		}
		kept = append(kept, trx)
	}
	c.pendingTxs = kept
	return nil
}

// GenerateBlock implements spec.md §4.4 generate_block: a witness node
// builds a new block extending the current head out of the pending
// transaction pool, greedily including transactions up to the dynamic
// global property's maximum_block_size, then pushes it through the same
// PushBlock path any received block takes.
func (c *Controller) GenerateBlock(witnessName types.AccountName, signingKey types.PublicKey, now time.Time, skip SkipFlags) (Block, error) {
	gd := c.State.GD()

	maxSize := uint64(gd.MaximumBlockSize)
	if maxSize == 0 {
		maxSize = 131072
	}

	var included []Transaction
	var size uint64
	for _, trx := range c.pendingTxs {
		encSize := uint64(len(encodeBlock(Block{Transactions: []Transaction{trx}})))
		if size+encSize > maxSize {
			continue
		}
		included = append(included, trx)
		size += encSize
	}

	header := BlockHeader{
		PreviousID:            gd.HeadBlockID,
		Timestamp:             now,
		Witness:               witnessName,
		TransactionMerkleRoot: MerkleRoot(included),
	}
	block := Block{Header: header, SigningKey: signingKey, Transactions: included}

	// The included transactions are about to become part of the chain
	// itself; drop them from the pending pool so rebuildPending (run at the
	// end of PushBlock) doesn't re-queue them for the next generated block.
	c.pendingTxs = remainingPending(c.pendingTxs, included)

	if err := c.PushBlock(block, now, skip); err != nil {
		return Block{}, err
	}
	return block, nil
}

// remainingPending returns all of pending that are not present in included,
// compared by transaction hash.
func remainingPending(pending, included []Transaction) []Transaction {
	consumed := make(map[[32]byte]struct{}, len(included))
	for _, trx := range included {
		consumed[hashTransaction(trx)] = struct{}{}
	}
	out := pending[:0]
	for _, trx := range pending {
		if _, ok := consumed[hashTransaction(trx)]; ok {
			continue
		}
		out = append(out, trx)
	}
	return out
}

func sortUint32(s []uint32) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
