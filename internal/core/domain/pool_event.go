package domain

const PoolTopic = "pool"

type EventType int

const (
	EventTypeUndefined EventType = iota
	PoolCreatedEvent
	BetPlacedEvent
	OutcomeProposedEvent
	OutcomeChallengedEvent
	PoolSettledEvent
	PoolCancelledEvent
	PrizeClaimedEvent
	StakeRefundedEvent
)

func (t EventType) String() string {
	switch t {
	case PoolCreatedEvent:
		return "pool_created"
	case BetPlacedEvent:
		return "bet_placed"
	case OutcomeProposedEvent:
		return "outcome_proposed"
	case OutcomeChallengedEvent:
		return "outcome_challenged"
	case PoolSettledEvent:
		return "pool_settled"
	case PoolCancelledEvent:
		return "pool_cancelled"
	case PrizeClaimedEvent:
		return "prize_claimed"
	case StakeRefundedEvent:
		return "stake_refunded"
	default:
		return "undefined"
	}
}

type PoolEvent interface {
	GetTopic() string
	GetType() EventType
}

func (e PoolCreated) GetTopic() string       { return PoolTopic }
func (e BetPlaced) GetTopic() string         { return PoolTopic }
func (e OutcomeProposed) GetTopic() string   { return PoolTopic }
func (e OutcomeChallenged) GetTopic() string { return PoolTopic }
func (e PoolSettled) GetTopic() string       { return PoolTopic }
func (e PoolCancelled) GetTopic() string     { return PoolTopic }
func (e PrizeClaimed) GetTopic() string      { return PoolTopic }
func (e StakeRefunded) GetTopic() string     { return PoolTopic }

func (e PoolCreated) GetType() EventType       { return PoolCreatedEvent }
func (e BetPlaced) GetType() EventType         { return BetPlacedEvent }
func (e OutcomeProposed) GetType() EventType   { return OutcomeProposedEvent }
func (e OutcomeChallenged) GetType() EventType { return OutcomeChallengedEvent }
func (e PoolSettled) GetType() EventType       { return PoolSettledEvent }
func (e PoolCancelled) GetType() EventType     { return PoolCancelledEvent }
func (e PrizeClaimed) GetType() EventType      { return PrizeClaimedEvent }
func (e StakeRefunded) GetType() EventType     { return StakeRefundedEvent }

type PoolCreated struct {
	Id              uint64
	Kind            PoolKind
	Creator         string
	Question        string
	Asset           string
	Threshold       uint64
	Options         []string
	StakeAmount     uint64
	Deadline        int64
	ResolveTime     int64
	ChallengeWindow int64
	CreationFee     uint64
	Timestamp       int64
}

type BetPlaced struct {
	Id          uint64
	Participant string
	Option      int
	Amount      uint64
	JoinFee     uint64
	Timestamp   int64
}

type OutcomeProposed struct {
	Id               uint64
	Proposer         string
	Option           int
	ChallengeEndTime int64
	Timestamp        int64
}

type OutcomeChallenged struct {
	Id         uint64
	Challenger string
	Timestamp  int64
}

type PoolSettled struct {
	Id               uint64
	Outcome          int
	Price            uint64
	PriceTime        int64
	TotalStaked      uint64
	WinningTotal     uint64
	SettlementFee    uint64
	Distributable    uint64
	NoOpponentRefund bool
	ResolvedBy       string
	ByAdmin          bool
	Timestamp        int64
}

type PoolCancelled struct {
	Id        uint64
	Reason    CancelReason
	By        string
	Timestamp int64
}

type PrizeClaimed struct {
	Id          uint64
	Participant string
	Share       uint64
	ClearingFee uint64
	Net         uint64
	Timestamp   int64
}

type StakeRefunded struct {
	Id          uint64
	Participant string
	Amount      uint64
	Timestamp   int64
}
