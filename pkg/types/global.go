package types

import (
	"time"

	bitfield "github.com/prysmaticlabs/go-bitfield"
	"github.com/holiman/uint256"
	"github.com/rusladder/LadderChain/pkg/amount"
)

// BlockID is the 160-bit block identifier of spec.md §6 ("first 160 bits of
// SHA-256 of the header, with the high 32 bits overwritten by the big-endian
// block number").
type BlockID [20]byte

// BlockNum extracts the big-endian block number encoded in the high 32 bits
// of the id.
func (b BlockID) BlockNum() uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// RecentSlotsFilledLen is the width of the participation bitmap (spec.md
// §3: "recent-slots-filled bitmap (128 bits)").
const RecentSlotsFilledLen = 128

// DynamicGlobalProperties is the singleton chain-state record of spec.md §3.
// It is stored as the single row at ID 1 of its own Table so that it
// participates in undo sessions the same way every other entity does.
type DynamicGlobalProperties struct {
	ID              ID
	HeadBlockNumber uint32
	HeadBlockID     BlockID
	Time            time.Time

	CurrentWitness AccountName
	CurrentASlot   uint64

	LastIrreversibleBlockNum uint32

	RecentSlotsFilled    *bitfield.Bitlist
	ParticipationCount   uint32

	CurrentSupply    amount.Amount
	VirtualSupply    amount.Amount
	CurrentSBDSupply amount.Amount

	TotalVestingFundSteem amount.Amount
	TotalVestingShares    amount.Amount

	SBDPrintRate     uint16 // basis points
	SBDInterestRate  uint16

	CurrentReserveRatio    uint32
	AverageBlockSize       uint32
	MaximumBlockSize       uint32
	MaxVirtualBandwidth    uint64

	// NextMaintenanceTime gates the liquidity-reward / fee-pool style
	// periodic housekeeping that isn't tied to every single block.
	NextMaintenanceTime time.Time
}

// NewRecentSlotsFilled returns an all-ones participation bitmap, matching
// Steem-family genesis behavior (a freshly started chain assumes full
// historical participation until evidence says otherwise).
func NewRecentSlotsFilled() *bitfield.Bitlist {
	bl := bitfield.NewBitlist(RecentSlotsFilledLen)
	for i := uint64(0); i < RecentSlotsFilledLen; i++ {
		bl.SetBitAt(i, true)
	}
	return bl
}

// RewardFundName distinguishes the named pools of spec.md §3 RewardFund.
type RewardFundName string

const (
	RewardFundPost    RewardFundName = "post"
	RewardFundComment RewardFundName = "comment"
)

// RewardFund is the content-payout pool entity of spec.md §3 / §4.7.
type RewardFund struct {
	ID                  ID
	Name                RewardFundName
	RewardBalance        amount.Amount
	RecentClaims         *uint256.Int // recent-rshares², decayed
	PercentContentRewards uint16
	ContentConstant      uint64
	LastUpdate           time.Time
}

// BlockSummary is a single slot of the TaPoS ring buffer of spec.md §3.
type BlockSummary struct {
	BlockNum uint32
	ID       BlockID
}

// BlockSummaryRingSize is the TaPoS ring buffer's fixed size (2^16, spec.md
// §3: "Ring buffer of size 2^16 indexed by (block_number & 0xFFFF)").
const BlockSummaryRingSize = 1 << 16

// HardforkProperties tracks hardfork application progress (spec.md §3). It
// is stored the same single-row way as DynamicGlobalProperties.
type HardforkProperties struct {
	ID                  ID
	ProcessedHardforks []time.Time
	NextHardforkVersion string
	NextHardforkTime    time.Time
	CurrentHardforkVersion string
	LastHardfork        uint32
}

// BandwidthClass is one of the four rolling-window buckets of spec.md §3
// AccountBandwidth / §4.11.
type BandwidthClass uint8

const (
	BandwidthForum BandwidthClass = iota
	BandwidthMarket
	BandwidthOldForum
	BandwidthOldMarket
)

// AccountBandwidth is a per-(account,class) exponentially-weighted average
// tracker (spec.md §3 / §4.11).
type AccountBandwidth struct {
	ID         ID
	Account    AccountName
	Class      BandwidthClass
	Average    uint64
	LastUpdate time.Time
}
