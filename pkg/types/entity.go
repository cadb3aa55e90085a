package types

// Entity is implemented by every object-store-resident type so the generic
// store (internal/objectstore) can assign and read stable ids without a
// type switch per table (spec.md §9 "reimplementations should use stable
// numeric object ids").
type Entity interface {
	GetID() ID
	SetID(ID)
}

func (a *Account) GetID() ID    { return a.ID }
func (a *Account) SetID(id ID)  { a.ID = id }

func (c *Comment) GetID() ID   { return c.ID }
func (c *Comment) SetID(id ID) { c.ID = id }

func (v *CommentVote) GetID() ID   { return v.ID }
func (v *CommentVote) SetID(id ID) { v.ID = id }

func (w *Witness) GetID() ID   { return w.ID }
func (w *Witness) SetID(id ID) { w.ID = id }

func (s *WitnessSchedule) GetID() ID   { return s.ID }
func (s *WitnessSchedule) SetID(id ID) { s.ID = id }

func (f *RewardFund) GetID() ID   { return f.ID }
func (f *RewardFund) SetID(id ID) { f.ID = id }

func (o *LimitOrder) GetID() ID   { return o.ID }
func (o *LimitOrder) SetID(id ID) { o.ID = id }

func (c *CallOrder) GetID() ID   { return c.ID }
func (c *CallOrder) SetID(id ID) { c.ID = id }

func (f *ForceSettlement) GetID() ID   { return f.ID }
func (f *ForceSettlement) SetID(id ID) { f.ID = id }

func (a *Asset) GetID() ID   { return a.ID }
func (a *Asset) SetID(id ID) { a.ID = id }

func (c *ConvertRequest) GetID() ID   { return c.ID }
func (c *ConvertRequest) SetID(id ID) { c.ID = id }

func (s *SavingsWithdraw) GetID() ID   { return s.ID }
func (s *SavingsWithdraw) SetID(id ID) { s.ID = id }

func (e *Escrow) GetID() ID   { return e.ID }
func (e *Escrow) SetID(id ID) { e.ID = id }

func (r *AccountRecoveryRequest) GetID() ID   { return r.ID }
func (r *AccountRecoveryRequest) SetID(id ID) { r.ID = id }

func (r *ChangeRecoveryAccountRequest) GetID() ID   { return r.ID }
func (r *ChangeRecoveryAccountRequest) SetID(id ID) { r.ID = id }

func (h *OwnerAuthorityHistory) GetID() ID   { return h.ID }
func (h *OwnerAuthorityHistory) SetID(id ID) { h.ID = id }

func (r *DeclineVotingRightsRequest) GetID() ID   { return r.ID }
func (r *DeclineVotingRightsRequest) SetID(id ID) { r.ID = id }

func (d *VestingDelegation) GetID() ID   { return d.ID }
func (d *VestingDelegation) SetID(id ID) { d.ID = id }

func (d *ExpiringVestingDelegation) GetID() ID   { return d.ID }
func (d *ExpiringVestingDelegation) SetID(id ID) { d.ID = id }

func (p *DynamicGlobalProperties) GetID() ID   { return p.ID }
func (p *DynamicGlobalProperties) SetID(id ID) { p.ID = id }

func (h *HardforkProperties) GetID() ID   { return h.ID }
func (h *HardforkProperties) SetID(id ID) { h.ID = id }

func (b *BlockSummary) GetID() ID   { return ID(b.BlockNum & (BlockSummaryRingSize - 1)) }
func (b *BlockSummary) SetID(ID)    {}

func (a *AssetDynamicData) GetID() ID   { return a.ID }
func (a *AssetDynamicData) SetID(id ID) { a.ID = id }

func (a *AssetBitAssetData) GetID() ID   { return a.ID }
func (a *AssetBitAssetData) SetID(id ID) { a.ID = id }

func (b *AccountBandwidth) GetID() ID   { return b.ID }
func (b *AccountBandwidth) SetID(id ID) { b.ID = id }
