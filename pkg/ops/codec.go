package ops

import "encoding/json"

// envelope tags a serialized operation with its OpName so a []Operation
// slice round-trips through JSON without losing its concrete variant, the
// same tagged-variant shape spec.md §9 describes for the in-memory type.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// registry lists every concrete Operation the wire codec knows how to
// rebuild. Each entry is a zero-value instance solely used for its
// OpName() and as a template for json.Unmarshal.
var registry = map[string]Operation{
	Vote{}.OpName():                          Vote{},
	Comment{}.OpName():                       Comment{},
	CommentOptions{}.OpName():                CommentOptions{},
	DeleteComment{}.OpName():                 DeleteComment{},
	Transfer{}.OpName():                      Transfer{},
	TransferToVesting{}.OpName():             TransferToVesting{},
	WithdrawVesting{}.OpName():               WithdrawVesting{},
	SetWithdrawVestingRoute{}.OpName():       SetWithdrawVestingRoute{},
	AccountCreate{}.OpName():                 AccountCreate{},
	AccountCreateWithDelegation{}.OpName():   AccountCreateWithDelegation{},
	AccountUpdate{}.OpName():                 AccountUpdate{},
	WitnessUpdate{}.OpName():                 WitnessUpdate{},
	AccountWitnessVote{}.OpName():            AccountWitnessVote{},
	AccountWitnessProxy{}.OpName():           AccountWitnessProxy{},
	Custom{}.OpName():                        Custom{},
	CustomBinary{}.OpName():                  CustomBinary{},
	CustomJSON{}.OpName():                    CustomJSON{},
	Pow{}.OpName():                           Pow{},
	Pow2{}.OpName():                          Pow2{},
	ReportOverProduction{}.OpName():          ReportOverProduction{},
	FeedPublish{}.OpName():                   FeedPublish{},
	Convert{}.OpName():                       Convert{},
	LimitOrderCreate{}.OpName():              LimitOrderCreate{},
	LimitOrderCreate2{}.OpName():             LimitOrderCreate2{},
	LimitOrderCancel{}.OpName():              LimitOrderCancel{},
	ChallengeAuthority{}.OpName():            ChallengeAuthority{},
	ProveAuthority{}.OpName():                ProveAuthority{},
	RequestAccountRecovery{}.OpName():        RequestAccountRecovery{},
	RecoverAccount{}.OpName():                RecoverAccount{},
	ChangeRecoveryAccount{}.OpName():         ChangeRecoveryAccount{},
	EscrowTransfer{}.OpName():                EscrowTransfer{},
	EscrowApprove{}.OpName():                 EscrowApprove{},
	EscrowDispute{}.OpName():                 EscrowDispute{},
	EscrowRelease{}.OpName():                 EscrowRelease{},
	TransferToSavings{}.OpName():             TransferToSavings{},
	TransferFromSavings{}.OpName():           TransferFromSavings{},
	CancelTransferFromSavings{}.OpName():     CancelTransferFromSavings{},
	DeclineVotingRights{}.OpName():           DeclineVotingRights{},
	ResetAccount{}.OpName():                  ResetAccount{},
	SetResetAccount{}.OpName():               SetResetAccount{},
	DelegateVestingShares{}.OpName():         DelegateVestingShares{},
	AssetCreate{}.OpName():                   AssetCreate{},
	AssetIssue{}.OpName():                    AssetIssue{},
	AssetReserve{}.OpName():                  AssetReserve{},
	AssetUpdate{}.OpName():                   AssetUpdate{},
	AssetUpdateBitasset{}.OpName():           AssetUpdateBitasset{},
	AssetUpdateFeedProducers{}.OpName():      AssetUpdateFeedProducers{},
	AssetFundFeePool{}.OpName():              AssetFundFeePool{},
	AssetGlobalSettle{}.OpName():             AssetGlobalSettle{},
	AssetSettle{}.OpName():                   AssetSettle{},
	AssetForceSettle{}.OpName():              AssetForceSettle{},
	AssetPublishFeeds{}.OpName():             AssetPublishFeeds{},
	AssetClaimFees{}.OpName():                AssetClaimFees{},
	CallOrderUpdate{}.OpName():               CallOrderUpdate{},
}

// Marshal encodes a single operation with its type tag.
func Marshal(op Operation) ([]byte, error) {
	data, err := json.Marshal(op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: op.OpName(), Data: data})
}

// Unmarshal decodes a single tagged operation back to its concrete type.
func Unmarshal(raw []byte) (Operation, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	template, ok := registry[env.Type]
	if !ok {
		return nil, &UnknownOperationError{Type: env.Type}
	}
	switch template.(type) {
	case Vote:
		var v Vote
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case Comment:
		var v Comment
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case CommentOptions:
		var v CommentOptions
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case DeleteComment:
		var v DeleteComment
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case Transfer:
		var v Transfer
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case TransferToVesting:
		var v TransferToVesting
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case WithdrawVesting:
		var v WithdrawVesting
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case SetWithdrawVestingRoute:
		var v SetWithdrawVestingRoute
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AccountCreate:
		var v AccountCreate
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AccountCreateWithDelegation:
		var v AccountCreateWithDelegation
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AccountUpdate:
		var v AccountUpdate
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case WitnessUpdate:
		var v WitnessUpdate
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AccountWitnessVote:
		var v AccountWitnessVote
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AccountWitnessProxy:
		var v AccountWitnessProxy
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case Custom:
		var v Custom
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case CustomBinary:
		var v CustomBinary
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case CustomJSON:
		var v CustomJSON
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case Pow:
		var v Pow
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case Pow2:
		var v Pow2
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case ReportOverProduction:
		var v ReportOverProduction
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case FeedPublish:
		var v FeedPublish
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case Convert:
		var v Convert
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case LimitOrderCreate:
		var v LimitOrderCreate
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case LimitOrderCreate2:
		var v LimitOrderCreate2
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case LimitOrderCancel:
		var v LimitOrderCancel
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case ChallengeAuthority:
		var v ChallengeAuthority
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case ProveAuthority:
		var v ProveAuthority
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case RequestAccountRecovery:
		var v RequestAccountRecovery
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case RecoverAccount:
		var v RecoverAccount
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case ChangeRecoveryAccount:
		var v ChangeRecoveryAccount
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case EscrowTransfer:
		var v EscrowTransfer
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case EscrowApprove:
		var v EscrowApprove
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case EscrowDispute:
		var v EscrowDispute
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case EscrowRelease:
		var v EscrowRelease
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case TransferToSavings:
		var v TransferToSavings
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case TransferFromSavings:
		var v TransferFromSavings
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case CancelTransferFromSavings:
		var v CancelTransferFromSavings
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case DeclineVotingRights:
		var v DeclineVotingRights
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case ResetAccount:
		var v ResetAccount
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case SetResetAccount:
		var v SetResetAccount
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case DelegateVestingShares:
		var v DelegateVestingShares
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetCreate:
		var v AssetCreate
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetIssue:
		var v AssetIssue
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetReserve:
		var v AssetReserve
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetUpdate:
		var v AssetUpdate
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetUpdateBitasset:
		var v AssetUpdateBitasset
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetUpdateFeedProducers:
		var v AssetUpdateFeedProducers
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetFundFeePool:
		var v AssetFundFeePool
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetGlobalSettle:
		var v AssetGlobalSettle
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetSettle:
		var v AssetSettle
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetForceSettle:
		var v AssetForceSettle
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetPublishFeeds:
		var v AssetPublishFeeds
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case AssetClaimFees:
		var v AssetClaimFees
		err := json.Unmarshal(env.Data, &v)
		return v, err
	case CallOrderUpdate:
		var v CallOrderUpdate
		err := json.Unmarshal(env.Data, &v)
		return v, err
	default:
		return nil, &UnknownOperationError{Type: env.Type}
	}
}

// UnknownOperationError is returned by Unmarshal for an operation type name
// the registry doesn't recognize, e.g. a newer node's operation reaching an
// older one.
type UnknownOperationError struct{ Type string }

func (e *UnknownOperationError) Error() string { return "ops: unknown operation type " + e.Type }
