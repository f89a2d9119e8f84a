package domain

import "math"

const BasisPoints = 10_000

// FeeConfig is the global settings record shared by every pool.
type FeeConfig struct {
	Admin          string
	FeeDestination string
	// Resolver is the identity allowed to submit oracle settlements. Empty
	// means any submitter is accepted.
	Resolver       string
	CreationFee    uint64
	JoinFeeBps     uint16
	ClearingFeeBps uint16
	SettleFeeBps   uint16
	NextPoolId     uint64
	UpdatedAt      int64
}

// FeeUpdate carries optional changes to the fee schedule. Nil fields are
// left untouched.
type FeeUpdate struct {
	FeeDestination *string
	Resolver       *string
	CreationFee    *uint64
	JoinFeeBps     *uint16
	ClearingFeeBps *uint16
	SettleFeeBps   *uint16
}

func NewFeeConfig(
	admin, feeDestination, resolver string, creationFee uint64,
	joinFeeBps, clearingFeeBps, settleFeeBps uint16,
) (*FeeConfig, error) {
	if admin == "" {
		return nil, ErrInvalidAdmin
	}
	if err := validateBps(joinFeeBps, clearingFeeBps, settleFeeBps); err != nil {
		return nil, err
	}
	return &FeeConfig{
		Admin:          admin,
		FeeDestination: feeDestination,
		Resolver:       resolver,
		CreationFee:    creationFee,
		JoinFeeBps:     joinFeeBps,
		ClearingFeeBps: clearingFeeBps,
		SettleFeeBps:   settleFeeBps,
		NextPoolId:     1,
	}, nil
}

func (c *FeeConfig) IsAdmin(identity string) bool {
	return identity != "" && identity == c.Admin
}

func (c *FeeConfig) IsResolver(identity string) bool {
	return c.Resolver == "" || identity == c.Resolver
}

func (c *FeeConfig) SetAdmin(signer, newAdmin string, now int64) error {
	if !c.IsAdmin(signer) {
		return ErrNotAdmin
	}
	if newAdmin == "" {
		return ErrInvalidAdmin
	}
	c.Admin = newAdmin
	c.UpdatedAt = now
	return nil
}

func (c *FeeConfig) Update(signer string, update FeeUpdate, now int64) error {
	if !c.IsAdmin(signer) {
		return ErrNotAdmin
	}

	next := *c
	if update.FeeDestination != nil {
		next.FeeDestination = *update.FeeDestination
	}
	if update.Resolver != nil {
		next.Resolver = *update.Resolver
	}
	if update.CreationFee != nil {
		next.CreationFee = *update.CreationFee
	}
	if update.JoinFeeBps != nil {
		next.JoinFeeBps = *update.JoinFeeBps
	}
	if update.ClearingFeeBps != nil {
		next.ClearingFeeBps = *update.ClearingFeeBps
	}
	if update.SettleFeeBps != nil {
		next.SettleFeeBps = *update.SettleFeeBps
	}
	if err := validateBps(next.JoinFeeBps, next.ClearingFeeBps, next.SettleFeeBps); err != nil {
		return err
	}

	next.UpdatedAt = now
	*c = next
	return nil
}

// AllocatePoolId returns the next pool id and advances the counter.
func (c *FeeConfig) AllocatePoolId() (uint64, error) {
	if c.NextPoolId == math.MaxUint64 {
		return 0, ErrOverflow
	}
	id := c.NextPoolId
	if id == 0 {
		id = 1
	}
	c.NextPoolId = id + 1
	return id, nil
}

func validateBps(rates ...uint16) error {
	for _, r := range rates {
		if r > BasisPoints {
			return ErrInvalidFeeRate
		}
	}
	return nil
}
