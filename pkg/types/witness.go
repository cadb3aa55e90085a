package types

import (
	"time"

	"github.com/rusladder/LadderChain/pkg/amount"
)

// ScheduleClass is the selection category a witness can fill a schedule
// slot under (spec.md §3 Witness "schedule class").
type ScheduleClass uint8

const (
	ScheduleClassTop ScheduleClass = iota
	ScheduleClassTimeshare
	ScheduleClassMiner
	ScheduleClassNone
)

// ChainProperties are the witness-reported values the scheduler medians
// each round (spec.md §3 WitnessSchedule "median witness properties").
type ChainProperties struct {
	AccountCreationFee amount.Amount
	MaximumBlockSize   uint32
	SBDInterestRate    uint16 // basis points
}

// Witness is the block-producer entity of spec.md §3.
type Witness struct {
	ID      ID
	Owner   AccountName
	SigningKey PublicKey

	RunningVersion   string
	HardforkVersionVote string
	HardforkTimeVote time.Time

	ScheduleClass ScheduleClass

	Votes amount.Amount // sum of backing vesting shares

	VirtualLastUpdate time.Time
	VirtualPosition   *BigRatio
	VirtualScheduledTime *BigRatio

	TotalMissed       uint64
	LastConfirmedBlockNum uint32
	LastAslotProduced uint64

	Props ChainProperties

	SBDFeed       Price
	SBDFeedLast   time.Time
	SBDExchangeHistory []Price // short ring used to compute the median feed

	CreatedAt time.Time
}

// Price is a ratio of two asset amounts, base/quote, matching the
// Graphene-family price representation used throughout feeds and orders.
type Price struct {
	Base  amount.Amount
	Quote amount.Amount
}

// WitnessSchedule is the per-round shuffled producer list of spec.md §3.
type WitnessSchedule struct {
	ID ID

	CurrentShuffledWitnesses []AccountName

	NumScheduledWitnesses uint8
	TopWitnessCount       uint8
	TimeshareWitnessCount uint8
	MinerWitnessCount     uint8

	WitnessPayNormalizationFactor uint32

	CurrentVirtualTime *BigRatio

	MedianProps ChainProperties

	CurrentShuffleBlockNum uint32
}
