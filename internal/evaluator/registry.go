// Package evaluator implements the evaluator registry of spec.md §4.3
// ("Dispatches each operation variant to its evaluator") and the evaluators
// themselves for every operation named in spec.md §6.
//
// Grounded on beacon-chain/core/blocks' per-operation processing functions
// (github.com/prysmaticlabs/prysm) for the overall shape (validate
// preconditions against state, mutate state, return a typed error), adapted
// from Ethereum-consensus's per-slot batch processing to Graphene-family
// per-operation dispatch (spec.md §9 design note: "represent operations as
// tagged variants; dispatch via match/switch over the tag").
package evaluator

import (
	"time"

	"github.com/rusladder/LadderChain/internal/state"
	"github.com/rusladder/LadderChain/pkg/errs"
	"github.com/rusladder/LadderChain/pkg/ops"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "evaluator")

// Context carries everything an evaluator needs beyond the operation
// itself: the state to mutate, the block time it is executing under, and a
// hook to record virtual operations (spec.md §6: "may push_virtual_operation
// to emit synthetic events").
type Context struct {
	State *state.State
	Now   time.Time

	// Signers is the set of keys/accounts that signed the enclosing
	// transaction, already resolved by the chain controller's authority
	// check (spec.md §4.4 step 4) before dispatch. No evaluator in this
	// package reads it.
	Signers map[string]struct{}

	// PushVirtual records a synthetic event for observers (fill_order,
	// etc.); may be nil in evaluator-only unit tests.
	PushVirtual func(kind string, payload interface{})
}

func (c *Context) emit(kind string, payload interface{}) {
	if c.PushVirtual != nil {
		c.PushVirtual(kind, payload)
	}
}

// Func is the signature every evaluator implements.
type Func func(ctx *Context, op ops.Operation) error

// Registry dispatches an Operation to its Func by OpName.
type Registry struct {
	handlers map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Func)}
}

// Register installs fn as the evaluator for the operation whose OpName is
// name. Re-registering a name replaces the prior handler (used by
// hardfork-gated evaluator swaps, though this implementation gates behavior
// inside a single evaluator via internal/hardfork instead).
func (r *Registry) Register(name string, fn Func) {
	r.handlers[name] = fn
}

// Dispatch looks up and runs the evaluator for op.
func (r *Registry) Dispatch(ctx *Context, op ops.Operation) error {
	fn, ok := r.handlers[op.OpName()]
	if !ok {
		return errs.New(errs.KindValidation, "no evaluator registered for operation "+op.OpName())
	}
	return fn(ctx, op)
}

// Default builds a Registry with every evaluator in this package installed.
func Default() *Registry {
	r := NewRegistry()
	registerAccountOps(r)
	registerSocialOps(r)
	registerWitnessOps(r)
	registerMarketOps(r)
	registerAssetOps(r)
	registerSavingsEscrowOps(r)
	registerMiscOps(r)
	return r
}
