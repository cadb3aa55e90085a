package types

// PublicKey is an opaque, comparable public-key encoding. Cryptographic
// verification itself is an external collaborator (spec.md §1); the chain
// only needs to compare and count keys during authority resolution.
type PublicKey string

// AuthorityKeyWeight pairs a key with its weight toward a threshold.
type AuthorityKeyWeight struct {
	Key    PublicKey
	Weight uint16
}

// AuthorityAccountWeight pairs a delegated account with its weight toward a
// threshold; resolving it recurses into that account's own authority
// (spec.md §4.4: "recursively resolve weighted-threshold authorities to
// depth ≤ MAX_SIG_CHECK_DEPTH").
type AuthorityAccountWeight struct {
	Account AccountName
	Weight  uint16
}

// Authority is a weighted-threshold multisig descriptor: it is satisfied
// when the sum of weights of the keys/accounts present in a signature set
// meets or exceeds Threshold.
type Authority struct {
	Threshold    uint32
	Keys         []AuthorityKeyWeight
	AccountAuths []AuthorityAccountWeight
}

// IsImpossible reports whether the authority can never be satisfied (sum of
// all weights below threshold), which account_update must reject.
func (a Authority) IsImpossible() bool {
	var total uint32
	for _, k := range a.Keys {
		total += uint32(k.Weight)
	}
	for _, acc := range a.AccountAuths {
		total += uint32(acc.Weight)
	}
	return total < a.Threshold
}
