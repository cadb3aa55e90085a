// Package forkdb implements the bounded, in-memory tree of reversible
// block headers of spec.md §4.3: push, common-ancestor branch fetch, and
// pruning bounded by head-minus-last-irreversible.
//
// Grounded on beacon-chain/forkchoice's doubly-linked-tree package
// (github.com/prysmaticlabs/prysm): a parent-pointer node tree with a
// tracked head, here carrying full block headers instead of FFG
// checkpoints since LadderChain's fork choice is "highest block number
// wins" (spec.md §4.4), not LMD-GHOST weight.
package forkdb

import (
	"github.com/pkg/errors"
	"github.com/rusladder/LadderChain/pkg/types"
)

// Header is the subset of a block's header the fork tree needs to order
// and link candidates (spec.md §6 Block format).
type Header struct {
	ID         types.BlockID
	PreviousID types.BlockID
	Num        uint32
	Witness    types.AccountName
}

type node struct {
	Header
	parent   *node
	children []*node
}

// DB is the fork database.
type DB struct {
	byID map[types.BlockID]*node
	root *node // last irreversible block; the tree's permanent root
	head *node // current best (highest) known block
}

// NewWithRoot seeds the tree with the last irreversible block as its root.
func NewWithRoot(root Header) *DB {
	n := &node{Header: root}
	return &DB{
		byID: map[types.BlockID]*node{root.ID: n},
		root: n,
		head: n,
	}
}

// Push inserts a new header, linking it to its parent, and returns the
// resulting best-known header in the whole tree (spec.md §4.4 case
// selection is driven by comparing this to the chain controller's current
// applied head; a push never itself decides to switch branches).
func (d *DB) Push(h Header) (Header, error) {
	if _, exists := d.byID[h.ID]; exists {
		return d.head.Header, nil
	}
	parent, ok := d.byID[h.PreviousID]
	if !ok {
		return Header{}, errors.Errorf("forkdb: unknown parent %x for block %x", h.PreviousID, h.ID)
	}
	n := &node{Header: h, parent: parent}
	parent.children = append(parent.children, n)
	d.byID[h.ID] = n

	if n.Num > d.head.Num {
		d.head = n
	}
	return d.head.Header, nil
}

// Head returns the current best-known header.
func (d *DB) Head() Header { return d.head.Header }

// Get returns the header for id.
func (d *DB) Get(id types.BlockID) (Header, bool) {
	n, ok := d.byID[id]
	if !ok {
		return Header{}, false
	}
	return n.Header, true
}

// SetHead forces the tracked head to id, used by the chain controller once
// it has actually applied (or rolled back to) that block — Push only
// reports the best *candidate*, it does not assert anything about what has
// been applied to the state machine.
func (d *DB) SetHead(id types.BlockID) error {
	n, ok := d.byID[id]
	if !ok {
		return errors.Errorf("forkdb: SetHead: unknown block %x", id)
	}
	d.head = n
	return nil
}

// FetchBranchFrom returns, for two block ids, the chain of headers from
// each down to (but not including) their common ancestor, ordered from the
// common ancestor's child up to the given tip. Used by the chain controller
// to decide whether and how to switch forks (spec.md §4.3, §4.4 case 2).
func (d *DB) FetchBranchFrom(a, b types.BlockID) (branchA, branchB []Header, err error) {
	na, ok := d.byID[a]
	if !ok {
		return nil, nil, errors.Errorf("forkdb: unknown block %x", a)
	}
	nb, ok := d.byID[b]
	if !ok {
		return nil, nil, errors.Errorf("forkdb: unknown block %x", b)
	}

	ancestorsA := map[types.BlockID]*node{}
	for n := na; n != nil; n = n.parent {
		ancestorsA[n.ID] = n
	}
	var common *node
	for n := nb; n != nil; n = n.parent {
		if _, ok := ancestorsA[n.ID]; ok {
			common = n
			break
		}
	}
	if common == nil {
		return nil, nil, errors.New("forkdb: no common ancestor (tree is not rooted consistently)")
	}

	for n := na; n != nil && n.ID != common.ID; n = n.parent {
		branchA = append([]Header{n.Header}, branchA...)
	}
	for n := nb; n != nil && n.ID != common.ID; n = n.parent {
		branchB = append([]Header{n.Header}, branchB...)
	}
	return branchA, branchB, nil
}

// Prune advances the tree's root to newRoot (the new last-irreversible
// block) and discards every node that is not a descendant of it, bounding
// the tree's size to head-minus-last-irreversible (spec.md §4.3 "Bound on
// size is head − last_irreversible + 1; older forks prune").
func (d *DB) Prune(newRoot types.BlockID) error {
	n, ok := d.byID[newRoot]
	if !ok {
		return errors.Errorf("forkdb: Prune: unknown block %x", newRoot)
	}
	keep := map[types.BlockID]*node{}
	var mark func(*node)
	mark = func(x *node) {
		keep[x.ID] = x
		for _, c := range x.children {
			mark(c)
		}
	}
	mark(n)
	for id := range d.byID {
		if _, ok := keep[id]; !ok {
			delete(d.byID, id)
		}
	}
	n.parent = nil
	d.root = n
	return nil
}

// Root returns the tree's current permanent root (the last irreversible
// block it was seeded or pruned to).
func (d *DB) Root() Header { return d.root.Header }
