package httpservice

import (
	"sort"

	"github.com/ark-network/wager/internal/core/application"
	"github.com/ark-network/wager/internal/core/domain"
)

type createPoolRequest struct {
	Creator         string   `json:"creator"`
	Kind            string   `json:"kind"`
	Question        string   `json:"question"`
	Asset           string   `json:"asset"`
	Threshold       uint64   `json:"threshold"`
	Options         []string `json:"options"`
	StakeAmount     uint64   `json:"stake_amount"`
	Deadline        int64    `json:"deadline"`
	ResolveTime     int64    `json:"resolve_time"`
	ChallengeWindow int64    `json:"challenge_window"`
}

func (r createPoolRequest) params() (domain.PoolParams, error) {
	var kind domain.PoolKind
	switch r.Kind {
	case domain.BinaryKind.String():
		kind = domain.BinaryKind
	case domain.MarketKind.String():
		kind = domain.MarketKind
	default:
		return domain.PoolParams{}, domain.ErrInvalidPoolKind
	}
	return domain.PoolParams{
		Kind:            kind,
		Question:        r.Question,
		Asset:           r.Asset,
		Threshold:       r.Threshold,
		Options:         r.Options,
		StakeAmount:     r.StakeAmount,
		Deadline:        r.Deadline,
		ResolveTime:     r.ResolveTime,
		ChallengeWindow: r.ChallengeWindow,
	}, nil
}

type listPoolsRequest struct {
	CreatedAfter  int64 `form:"created_after"`
	CreatedBefore int64 `form:"created_before"`
}

type betRequest struct {
	Participant string `json:"participant"`
	Option      int    `json:"option"`
	Amount      uint64 `json:"amount"`
}

type optionRequest struct {
	Signer string `json:"signer"`
	Option int    `json:"option"`
}

type signerRequest struct {
	Signer string `json:"signer"`
}

type feeUpdateRequest struct {
	Signer         string  `json:"signer"`
	FeeDestination *string `json:"fee_destination"`
	Resolver       *string `json:"resolver"`
	CreationFee    *uint64 `json:"creation_fee"`
	JoinFeeBps     *uint16 `json:"join_fee_bps"`
	ClearingFeeBps *uint16 `json:"clearing_fee_bps"`
	SettleFeeBps   *uint16 `json:"settle_fee_bps"`
}

func (r feeUpdateRequest) update() domain.FeeUpdate {
	return domain.FeeUpdate{
		FeeDestination: r.FeeDestination,
		Resolver:       r.Resolver,
		CreationFee:    r.CreationFee,
		JoinFeeBps:     r.JoinFeeBps,
		ClearingFeeBps: r.ClearingFeeBps,
		SettleFeeBps:   r.SettleFeeBps,
	}
}

type setAdminRequest struct {
	Signer string `json:"signer"`
	Admin  string `json:"admin"`
}

type positionView struct {
	Participant string `json:"participant"`
	Option      int    `json:"option"`
	Amount      uint64 `json:"amount"`
	Bets        uint32 `json:"bets"`
	Claimed     bool   `json:"claimed"`
	Refunded    bool   `json:"refunded"`
	Payout      uint64 `json:"payout,omitempty"`
}

type poolView struct {
	Id               uint64         `json:"id"`
	Kind             string         `json:"kind"`
	Creator          string         `json:"creator"`
	Question         string         `json:"question"`
	Asset            string         `json:"asset,omitempty"`
	Threshold        uint64         `json:"threshold,omitempty"`
	Options          []string       `json:"options"`
	StakeAmount      uint64         `json:"stake_amount,omitempty"`
	Deadline         int64          `json:"deadline"`
	ResolveTime      int64          `json:"resolve_time,omitempty"`
	ChallengeWindow  int64          `json:"challenge_window,omitempty"`
	Phase            string         `json:"phase"`
	Totals           []uint64       `json:"totals"`
	Participants     []uint32       `json:"participants"`
	TotalStaked      uint64         `json:"total_staked"`
	Proposer         string         `json:"proposer,omitempty"`
	ProposedOutcome  int            `json:"proposed_outcome"`
	ChallengeEndTime int64          `json:"challenge_end_time,omitempty"`
	Challenger       string         `json:"challenger,omitempty"`
	Outcome          int            `json:"outcome"`
	ResolvedPrice    uint64         `json:"resolved_price,omitempty"`
	SettlementFee    uint64         `json:"settlement_fee"`
	Distributable    uint64         `json:"distributable"`
	NoOpponentRefund bool           `json:"no_opponent_refund"`
	CancelReason     string         `json:"cancel_reason,omitempty"`
	CreatedAt        int64          `json:"created_at"`
	SettledAt        int64          `json:"settled_at,omitempty"`
	Positions        []positionView `json:"positions"`
}

func toPoolView(p *domain.Pool, now int64) poolView {
	positions := make([]positionView, 0, len(p.Positions))
	for _, pos := range p.Positions {
		positions = append(positions, positionView{
			Participant: pos.Participant,
			Option:      pos.Option,
			Amount:      pos.Amount,
			Bets:        pos.Bets,
			Claimed:     pos.Claimed,
			Refunded:    pos.Refunded,
			Payout:      pos.Payout,
		})
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Participant < positions[j].Participant
	})

	var cancelReason string
	if p.CancelReason != domain.CancelUndefined {
		cancelReason = p.CancelReason.String()
	}
	return poolView{
		Id:               p.Id,
		Kind:             p.Kind.String(),
		Creator:          p.Creator,
		Question:         p.Question,
		Asset:            p.Asset,
		Threshold:        p.Threshold,
		Options:          p.Options,
		StakeAmount:      p.StakeAmount,
		Deadline:         p.Deadline,
		ResolveTime:      p.ResolveTime,
		ChallengeWindow:  p.ChallengeWindow,
		Phase:            p.PhaseAt(now).String(),
		Totals:           p.Totals,
		Participants:     p.Participants,
		TotalStaked:      p.TotalStaked(),
		Proposer:         p.Proposer,
		ProposedOutcome:  p.ProposedOutcome,
		ChallengeEndTime: p.ChallengeEndTime,
		Challenger:       p.Challenger,
		Outcome:          p.Outcome,
		ResolvedPrice:    p.ResolvedPrice,
		SettlementFee:    p.SettlementFee,
		Distributable:    p.Distributable,
		NoOpponentRefund: p.NoOpponentRefund,
		CancelReason:     cancelReason,
		CreatedAt:        p.CreatedAt,
		SettledAt:        p.SettledAt,
		Positions:        positions,
	}
}

type feeConfigView struct {
	Admin          string `json:"admin"`
	FeeDestination string `json:"fee_destination"`
	Resolver       string `json:"resolver"`
	CreationFee    uint64 `json:"creation_fee"`
	JoinFeeBps     uint16 `json:"join_fee_bps"`
	ClearingFeeBps uint16 `json:"clearing_fee_bps"`
	SettleFeeBps   uint16 `json:"settle_fee_bps"`
	NextPoolId     uint64 `json:"next_pool_id"`
	UpdatedAt      int64  `json:"updated_at"`
}

func toFeeConfigView(c *domain.FeeConfig) feeConfigView {
	return feeConfigView{
		Admin:          c.Admin,
		FeeDestination: c.FeeDestination,
		Resolver:       c.Resolver,
		CreationFee:    c.CreationFee,
		JoinFeeBps:     c.JoinFeeBps,
		ClearingFeeBps: c.ClearingFeeBps,
		SettleFeeBps:   c.SettleFeeBps,
		NextPoolId:     c.NextPoolId,
		UpdatedAt:      c.UpdatedAt,
	}
}

type betView struct {
	PoolId      uint64       `json:"pool_id"`
	Txid        string       `json:"txid"`
	Participant string       `json:"participant"`
	Option      int          `json:"option"`
	Amount      uint64       `json:"amount"`
	JoinFee     uint64       `json:"join_fee"`
	Position    positionView `json:"position"`
}

type claimView struct {
	PoolId      uint64 `json:"pool_id"`
	Txid        string `json:"txid"`
	Participant string `json:"participant"`
	Amount      uint64 `json:"amount"`
	Fee         uint64 `json:"fee"`
}

type payoutView struct {
	Participant string `json:"participant"`
	Stake       uint64 `json:"stake"`
	Share       uint64 `json:"share"`
	ClearingFee uint64 `json:"clearing_fee"`
	Net         uint64 `json:"net"`
}

type reportView struct {
	Pool             poolView     `json:"pool"`
	Outcome          int          `json:"outcome"`
	TotalStaked      uint64       `json:"total_staked"`
	WinningTotal     uint64       `json:"winning_total"`
	SettlementFee    uint64       `json:"settlement_fee"`
	Distributable    uint64       `json:"distributable"`
	NoOpponentRefund bool         `json:"no_opponent_refund"`
	Payouts          []payoutView `json:"payouts"`
	TotalNet         uint64       `json:"total_net"`
	ClearingFees     uint64       `json:"clearing_fees"`
	Dust             uint64       `json:"dust"`
}

func toReportView(r *application.SettlementReport, now int64) reportView {
	view := reportView{
		Pool:             toPoolView(r.Pool, now),
		Outcome:          r.Result.Outcome,
		TotalStaked:      r.Result.TotalStaked,
		WinningTotal:     r.Result.WinningTotal,
		SettlementFee:    r.Result.SettlementFee,
		Distributable:    r.Result.Distributable,
		NoOpponentRefund: r.Result.NoOpponentRefund,
		Payouts:          make([]payoutView, 0),
	}
	if r.Payouts != nil {
		for _, p := range r.Payouts.Payouts {
			view.Payouts = append(view.Payouts, payoutView{
				Participant: p.Participant,
				Stake:       p.Stake,
				Share:       p.Share,
				ClearingFee: p.ClearingFee,
				Net:         p.Net,
			})
		}
		view.TotalNet = r.Payouts.TotalNet
		view.ClearingFees = r.Payouts.ClearingFees
		view.Dust = r.Payouts.Dust
	}
	return view
}

type trackedPoolView struct {
	PoolId    uint64 `json:"pool_id"`
	Deadline  int64  `json:"deadline"`
	Phase     string `json:"phase"`
	Scheduled bool   `json:"scheduled"`
	InFlight  bool   `json:"in_flight"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error,omitempty"`
}

type attemptView struct {
	PoolId  uint64    `json:"pool_id"`
	Outcome string    `json:"outcome"`
	Txid    string    `json:"txid,omitempty"`
	Pool    *poolView `json:"pool,omitempty"`
}

type infoView struct {
	FeeConfig    feeConfigView `json:"fee_config"`
	MinStake     uint64        `json:"min_stake"`
	MaxOptions   int           `json:"max_options"`
	TrackedPools int           `json:"tracked_pools"`
}
