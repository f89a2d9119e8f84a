package domain

import (
	"fmt"
	"math/bits"
	"unicode/utf8"
)

const (
	MaxOptions        = 10
	MinOptions        = 2
	MaxQuestionLength = 256
	MaxOptionLength   = 64
	MinStakeAmount    = 1_000_000
)

type PoolKind int

const (
	UndefinedKind PoolKind = iota
	BinaryKind
	MarketKind
)

func (k PoolKind) String() string {
	switch k {
	case BinaryKind:
		return "binary"
	case MarketKind:
		return "market"
	default:
		return "undefined"
	}
}

type Phase int

const (
	PhaseUndefined Phase = iota
	PhaseOpen
	PhaseClosed
	PhaseProposed
	PhaseDisputed
	PhaseSettled
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "OPEN"
	case PhaseClosed:
		return "CLOSED"
	case PhaseProposed:
		return "PROPOSED"
	case PhaseDisputed:
		return "DISPUTED"
	case PhaseSettled:
		return "SETTLED"
	case PhaseCancelled:
		return "CANCELLED"
	default:
		return "UNDEFINED"
	}
}

func (p Phase) IsTerminal() bool {
	return p == PhaseSettled || p == PhaseCancelled
}

type CancelReason int

const (
	CancelUndefined CancelReason = iota
	CancelByAdmin
	CancelExpired
)

func (r CancelReason) String() string {
	switch r {
	case CancelByAdmin:
		return "admin"
	case CancelExpired:
		return "expired"
	default:
		return "undefined"
	}
}

// Price is a fixed-point quote returned by an oracle.
type Price struct {
	Value     uint64
	Timestamp int64
}

type PoolParams struct {
	Kind     PoolKind
	Question string
	// Binary pools only.
	Asset     string
	Threshold uint64
	// Multi-option markets only.
	Options         []string
	StakeAmount     uint64
	ResolveTime     int64
	ChallengeWindow int64

	Deadline int64
}

type Pool struct {
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
	Phase           Phase
	Totals          []uint64
	Participants    []uint32
	Positions       map[string]*Position

	Proposer         string
	ProposedOutcome  int
	ChallengeEndTime int64
	Challenger       string

	Outcome          int
	ResolvedPrice    uint64
	ResolvedBy       string
	ByAdmin          bool
	WinningTotal     uint64
	SettlementFee    uint64
	Distributable    uint64
	NoOpponentRefund bool
	CancelReason     CancelReason

	CreationFee  uint64
	JoinFees     uint64
	ClearingFees uint64
	PaidOut      uint64

	CreatedAt int64
	SettledAt int64
	Version   uint
	changes   []PoolEvent
}

func NewPool(
	id uint64, creator string, params PoolParams, creationFee uint64, now int64,
) (*Pool, error) {
	if creator == "" {
		return nil, ErrInvalidIdentity
	}
	if err := params.validate(now); err != nil {
		return nil, err
	}

	options := params.Options
	if params.Kind == BinaryKind {
		options = []string{"lower", "upper"}
	}

	p := &Pool{}
	p.raise(PoolCreated{
		Id:              id,
		Kind:            params.Kind,
		Creator:         creator,
		Question:        params.Question,
		Asset:           params.Asset,
		Threshold:       params.Threshold,
		Options:         append([]string{}, options...),
		StakeAmount:     params.StakeAmount,
		Deadline:        params.Deadline,
		ResolveTime:     params.ResolveTime,
		ChallengeWindow: params.ChallengeWindow,
		CreationFee:     creationFee,
		Timestamp:       now,
	})
	return p, nil
}

func NewPoolFromEvents(events []PoolEvent) *Pool {
	p := &Pool{}
	for _, event := range events {
		p.On(event, true)
	}
	p.changes = nil
	return p
}

func (p *Pool) Events() []PoolEvent {
	return p.changes
}

func (p *Pool) On(event PoolEvent, replayed bool) {
	switch e := event.(type) {
	case PoolCreated:
		p.Id = e.Id
		p.Kind = e.Kind
		p.Creator = e.Creator
		p.Question = e.Question
		p.Asset = e.Asset
		p.Threshold = e.Threshold
		p.Options = append([]string{}, e.Options...)
		p.StakeAmount = e.StakeAmount
		p.Deadline = e.Deadline
		p.ResolveTime = e.ResolveTime
		p.ChallengeWindow = e.ChallengeWindow
		p.CreationFee = e.CreationFee
		p.CreatedAt = e.Timestamp
		p.Phase = PhaseOpen
		p.Totals = make([]uint64, len(e.Options))
		p.Participants = make([]uint32, len(e.Options))
		p.Positions = make(map[string]*Position)
		p.ProposedOutcome = -1
		p.Outcome = -1
	case BetPlaced:
		if p.Positions == nil || e.Option < 0 || e.Option >= len(p.Totals) {
			break
		}
		pos, ok := p.Positions[e.Participant]
		if !ok {
			pos = &Position{
				PoolId:      e.Id,
				Participant: e.Participant,
				Option:      e.Option,
			}
			p.Positions[e.Participant] = pos
			p.Participants[e.Option]++
		}
		pos.Amount += e.Amount
		pos.Bets++
		p.Totals[e.Option] += e.Amount
		p.JoinFees += e.JoinFee
	case OutcomeProposed:
		p.Phase = PhaseProposed
		p.Proposer = e.Proposer
		p.ProposedOutcome = e.Option
		p.ChallengeEndTime = e.ChallengeEndTime
	case OutcomeChallenged:
		p.Phase = PhaseDisputed
		p.Challenger = e.Challenger
	case PoolSettled:
		p.Phase = PhaseSettled
		p.Outcome = e.Outcome
		p.ResolvedPrice = e.Price
		p.ResolvedBy = e.ResolvedBy
		p.ByAdmin = e.ByAdmin
		p.WinningTotal = e.WinningTotal
		p.SettlementFee = e.SettlementFee
		p.Distributable = e.Distributable
		p.NoOpponentRefund = e.NoOpponentRefund
		p.SettledAt = e.Timestamp
	case PoolCancelled:
		p.Phase = PhaseCancelled
		p.CancelReason = e.Reason
		p.SettledAt = e.Timestamp
	case PrizeClaimed:
		// payouts to unknown participants are not applied
		pos, ok := p.Positions[e.Participant]
		if !ok || pos == nil {
			break
		}
		pos.Claimed = true
		pos.Payout = e.Net
		pos.ClearingFee = e.ClearingFee
		p.ClearingFees += e.ClearingFee
		p.PaidOut += e.Net
	case StakeRefunded:
		pos, ok := p.Positions[e.Participant]
		if !ok || pos == nil {
			break
		}
		pos.Claimed = true
		pos.Refunded = true
		pos.Payout = e.Amount
		p.PaidOut += e.Amount
	}

	if replayed {
		p.Version++
	}
}

// PlaceBet adds stake on option for participant. The join fee is charged on
// top of the stake and never enters the pool totals.
func (p *Pool) PlaceBet(
	participant string, option int, amount uint64, joinFeeBps uint16, now int64,
) ([]PoolEvent, error) {
	if participant == "" {
		return nil, ErrInvalidIdentity
	}
	if p.Phase != PhaseOpen {
		return nil, ErrPoolNotOpen
	}
	if now >= p.Deadline {
		return nil, ErrBettingClosed
	}
	if option < 0 || option >= len(p.Options) {
		return nil, ErrInvalidOption
	}

	switch p.Kind {
	case MarketKind:
		if amount == 0 {
			amount = p.StakeAmount
		}
		if amount != p.StakeAmount {
			return nil, ErrInvalidAmount
		}
	default:
		if amount < MinStakeAmount {
			return nil, ErrStakeTooSmall
		}
	}

	if pos, ok := p.Positions[participant]; ok {
		if pos.Option != option {
			return nil, ErrOptionMismatch
		}
		if _, carry := bits.Add64(pos.Amount, amount, 0); carry != 0 {
			return nil, ErrOverflow
		}
	}
	if _, carry := bits.Add64(p.TotalStaked(), amount, 0); carry != 0 {
		return nil, ErrOverflow
	}

	joinFee, err := mulDiv(amount, uint64(joinFeeBps), BasisPoints)
	if err != nil {
		return nil, err
	}

	event := BetPlaced{
		Id:          p.Id,
		Participant: participant,
		Option:      option,
		Amount:      amount,
		JoinFee:     joinFee,
		Timestamp:   now,
	}
	p.raise(event)
	return []PoolEvent{event}, nil
}

// Settle resolves a binary pool against an oracle price.
func (p *Pool) Settle(
	resolver string, price Price, fees FeeConfig, now int64,
) ([]PoolEvent, error) {
	if p.Kind != BinaryKind {
		return nil, ErrInvalidPoolKind
	}
	if err := p.checkNotTerminal(); err != nil {
		return nil, err
	}
	if !fees.IsResolver(resolver) {
		return nil, ErrNotResolver
	}
	if now < p.Deadline {
		return nil, ErrNotExpired
	}
	if price.Timestamp <= 0 {
		return nil, ErrInvalidPrice
	}

	outcome := BinaryOutcome(price.Value, p.Threshold)
	return p.settle(outcome, price, resolver, false, fees.SettleFeeBps, now)
}

// ProposeOutcome opens the challenge window. Only participants may propose.
func (p *Pool) ProposeOutcome(proposer string, option int, now int64) ([]PoolEvent, error) {
	if p.Kind != MarketKind {
		return nil, ErrInvalidPoolKind
	}
	if p.Phase != PhaseOpen {
		if err := p.checkNotTerminal(); err != nil {
			return nil, err
		}
		return nil, ErrPoolNotOpen
	}
	if option < 0 || option >= len(p.Options) {
		return nil, ErrInvalidOption
	}
	if !p.HasPosition(proposer) {
		return nil, ErrNotParticipant
	}

	end, carry := bits.Add64(uint64(now), uint64(p.ChallengeWindow), 0)
	if carry != 0 || end > uint64(1<<63-1) {
		return nil, ErrOverflow
	}

	event := OutcomeProposed{
		Id:               p.Id,
		Proposer:         proposer,
		Option:           option,
		ChallengeEndTime: int64(end),
		Timestamp:        now,
	}
	p.raise(event)
	return []PoolEvent{event}, nil
}

// Challenge disputes the pending proposal while the window is open.
func (p *Pool) Challenge(challenger string, now int64) ([]PoolEvent, error) {
	if p.Kind != MarketKind {
		return nil, ErrInvalidPoolKind
	}
	if p.Phase != PhaseProposed {
		return nil, ErrNotProposed
	}
	if now >= p.ChallengeEndTime {
		return nil, ErrChallengeWindowClosed
	}
	if !p.HasPosition(challenger) {
		return nil, ErrNotParticipant
	}
	if challenger == p.Proposer {
		return nil, ErrSelfChallenge
	}

	event := OutcomeChallenged{
		Id:         p.Id,
		Challenger: challenger,
		Timestamp:  now,
	}
	p.raise(event)
	return []PoolEvent{event}, nil
}

// Finalize settles an unchallenged proposal. Anyone may call it once the
// challenge window has ended.
func (p *Pool) Finalize(caller string, fees FeeConfig, now int64) ([]PoolEvent, error) {
	if p.Kind != MarketKind {
		return nil, ErrInvalidPoolKind
	}
	if p.Phase != PhaseProposed {
		if err := p.checkNotTerminal(); err != nil {
			return nil, err
		}
		return nil, ErrNotProposed
	}
	if now < p.ChallengeEndTime {
		return nil, ErrChallengeWindowOpen
	}
	return p.settle(p.ProposedOutcome, Price{}, caller, false, fees.SettleFeeBps, now)
}

func (p *Pool) ResolveDispute(
	signer string, option int, fees FeeConfig, now int64,
) ([]PoolEvent, error) {
	if !fees.IsAdmin(signer) {
		return nil, ErrNotAdmin
	}
	if p.Kind != MarketKind {
		return nil, ErrInvalidPoolKind
	}
	if p.Phase != PhaseDisputed {
		if err := p.checkNotTerminal(); err != nil {
			return nil, err
		}
		return nil, ErrNotDisputed
	}
	if option < 0 || option >= len(p.Options) {
		return nil, ErrInvalidOption
	}
	return p.settle(option, Price{}, signer, true, fees.SettleFeeBps, now)
}

// Cancel is the administrator's escape hatch from any non-terminal phase.
func (p *Pool) Cancel(signer string, fees FeeConfig, now int64) ([]PoolEvent, error) {
	if !fees.IsAdmin(signer) {
		return nil, ErrNotAdmin
	}
	if err := p.checkNotTerminal(); err != nil {
		return nil, err
	}
	return p.cancel(CancelByAdmin, signer, now), nil
}

// Expire cancels a market nobody proposed an outcome for within the grace
// period after its resolve time.
func (p *Pool) Expire(abandonGrace, now int64) ([]PoolEvent, error) {
	if p.Kind != MarketKind {
		return nil, ErrInvalidPoolKind
	}
	if err := p.checkNotTerminal(); err != nil {
		return nil, err
	}
	if p.Phase != PhaseOpen || now < p.ResolveTime+abandonGrace {
		return nil, ErrNotExpirable
	}
	return p.cancel(CancelExpired, "", now), nil
}

// Claim pays out a winning position of a settled pool.
func (p *Pool) Claim(participant string, clearingFeeBps uint16, now int64) ([]PoolEvent, error) {
	if p.Phase != PhaseSettled {
		return nil, ErrPoolNotSettled
	}
	if p.NoOpponentRefund {
		return nil, ErrNoOpponentRefund
	}
	pos, ok := p.Positions[participant]
	if !ok || pos.Amount == 0 {
		return nil, ErrNotParticipant
	}
	if pos.Claimed {
		return nil, ErrAlreadyClaimed
	}
	if pos.Option != p.Outcome {
		return nil, ErrNotWinner
	}

	payout, err := ComputePayout(p.Distributable, pos.Amount, p.WinningTotal, clearingFeeBps)
	if err != nil {
		return nil, err
	}

	event := PrizeClaimed{
		Id:          p.Id,
		Participant: participant,
		Share:       payout.Share,
		ClearingFee: payout.ClearingFee,
		Net:         payout.Net,
		Timestamp:   now,
	}
	p.raise(event)
	return []PoolEvent{event}, nil
}

// Refund returns the exact stake of a position once the pool is cancelled
// or settled unopposed. Fees paid on top of the stake are not refunded.
func (p *Pool) Refund(participant string, now int64) ([]PoolEvent, error) {
	if !p.IsRefundable() {
		return nil, ErrPoolNotCancelled
	}
	pos, ok := p.Positions[participant]
	if !ok || pos.Amount == 0 {
		return nil, ErrNotParticipant
	}
	if pos.Claimed {
		return nil, ErrAlreadyClaimed
	}

	event := StakeRefunded{
		Id:          p.Id,
		Participant: participant,
		Amount:      pos.Amount,
		Timestamp:   now,
	}
	p.raise(event)
	return []PoolEvent{event}, nil
}

func (p *Pool) IsRefundable() bool {
	return p.Phase == PhaseCancelled || (p.Phase == PhaseSettled && p.NoOpponentRefund)
}

func (p *Pool) IsTerminal() bool {
	return p.Phase.IsTerminal()
}

// PhaseAt returns the lifecycle phase as observed at now. Betting closes
// implicitly once the deadline has passed.
func (p *Pool) PhaseAt(now int64) Phase {
	if p.Phase == PhaseOpen && now >= p.Deadline {
		return PhaseClosed
	}
	return p.Phase
}

// NextActionTime is the moment the pool needs an automatic action, if any.
// Disputed markets wait for the administrator.
func (p *Pool) NextActionTime(abandonGrace int64) (int64, bool) {
	switch p.Phase {
	case PhaseOpen:
		if p.Kind == MarketKind {
			return p.ResolveTime + abandonGrace, true
		}
		return p.Deadline, true
	case PhaseProposed:
		return p.ChallengeEndTime, true
	default:
		return 0, false
	}
}

func (p *Pool) TotalStaked() uint64 {
	var total uint64
	for _, t := range p.Totals {
		total += t
	}
	return total
}

func (p *Pool) HasPosition(participant string) bool {
	pos, ok := p.Positions[participant]
	return ok && pos.Amount > 0
}

func (p *Pool) Position(participant string) (*Position, bool) {
	pos, ok := p.Positions[participant]
	return pos, ok
}

// Settlement rebuilds the settlement result of a settled pool.
func (p *Pool) Settlement() (*SettlementResult, error) {
	if p.Phase != PhaseSettled {
		return nil, ErrPoolNotSettled
	}
	return &SettlementResult{
		Outcome:          p.Outcome,
		TotalStaked:      p.TotalStaked(),
		WinningTotal:     p.WinningTotal,
		SettlementFee:    p.SettlementFee,
		Distributable:    p.Distributable,
		NoOpponentRefund: p.NoOpponentRefund,
	}, nil
}

func (p *Pool) PayoutTable(clearingFeeBps uint16) (*PayoutTable, error) {
	result, err := p.Settlement()
	if err != nil {
		return nil, err
	}
	return ComputePayoutTable(result, p.Positions, clearingFeeBps)
}

// Clone returns a deep copy without pending changes, used to dry-run
// operations before submitting them.
func (p *Pool) Clone() *Pool {
	c := *p
	c.Options = append([]string{}, p.Options...)
	c.Totals = append([]uint64{}, p.Totals...)
	c.Participants = append([]uint32{}, p.Participants...)
	c.Positions = make(map[string]*Position, len(p.Positions))
	for k, v := range p.Positions {
		pos := *v
		c.Positions[k] = &pos
	}
	c.changes = nil
	return &c
}

func (p *Pool) String() string {
	return fmt.Sprintf("pool %d (%s, %s)", p.Id, p.Kind, p.Phase)
}

func (p *Pool) settle(
	outcome int, price Price, resolvedBy string, byAdmin bool,
	settleFeeBps uint16, now int64,
) ([]PoolEvent, error) {
	result, err := ComputeSettlement(p.Totals, outcome, settleFeeBps)
	if err != nil {
		return nil, err
	}

	event := PoolSettled{
		Id:               p.Id,
		Outcome:          result.Outcome,
		Price:            price.Value,
		PriceTime:        price.Timestamp,
		TotalStaked:      result.TotalStaked,
		WinningTotal:     result.WinningTotal,
		SettlementFee:    result.SettlementFee,
		Distributable:    result.Distributable,
		NoOpponentRefund: result.NoOpponentRefund,
		ResolvedBy:       resolvedBy,
		ByAdmin:          byAdmin,
		Timestamp:        now,
	}
	p.raise(event)
	return []PoolEvent{event}, nil
}

func (p *Pool) cancel(reason CancelReason, by string, now int64) []PoolEvent {
	event := PoolCancelled{
		Id:        p.Id,
		Reason:    reason,
		By:        by,
		Timestamp: now,
	}
	p.raise(event)
	return []PoolEvent{event}
}

func (p *Pool) checkNotTerminal() error {
	switch p.Phase {
	case PhaseSettled:
		return ErrAlreadySettled
	case PhaseCancelled:
		return ErrAlreadyCancelled
	case PhaseUndefined:
		return ErrPoolNotFound
	}
	return nil
}

func (p *Pool) raise(event PoolEvent) {
	if p.changes == nil {
		p.changes = make([]PoolEvent, 0)
	}
	p.On(event, false)
	p.changes = append(p.changes, event)
}

func (params PoolParams) validate(now int64) error {
	if params.Deadline <= now {
		return ErrInvalidDeadline
	}
	if len(params.Question) > MaxQuestionLength {
		return ErrQuestionTooLong
	}

	switch params.Kind {
	case BinaryKind:
		if params.Asset == "" {
			return ErrInvalidAsset
		}
	case MarketKind:
		if len(params.Options) < MinOptions || len(params.Options) > MaxOptions {
			return ErrInvalidOptionsCount
		}
		for _, opt := range params.Options {
			if len(opt) > MaxOptionLength || !utf8.ValidString(opt) {
				return ErrOptionTooLong
			}
		}
		if params.StakeAmount < MinStakeAmount {
			return ErrStakeTooSmall
		}
		if params.ResolveTime < params.Deadline {
			return ErrInvalidResolveTime
		}
		if params.ChallengeWindow <= 0 {
			return ErrInvalidChallengeWindow
		}
	default:
		return ErrInvalidPoolKind
	}
	return nil
}
