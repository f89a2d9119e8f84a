package httpservice

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ark-network/wager/internal/core/application"
	"github.com/ark-network/wager/internal/core/domain"
	"github.com/gin-gonic/gin"
)

type handler struct {
	appSvc application.Service
	now    func() int64
}

func newHandler(appSvc application.Service) *handler {
	return &handler{appSvc, func() int64 { return time.Now().Unix() }}
}

func (h *handler) getInfo(c *gin.Context) {
	info, err := h.appSvc.GetInfo(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, infoView{
		FeeConfig:    toFeeConfigView(&info.FeeConfig),
		MinStake:     info.MinStake,
		MaxOptions:   info.MaxOptions,
		TrackedPools: info.TrackedPools,
	})
}

func (h *handler) createPool(c *gin.Context) {
	var req createPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	params, err := req.params()
	if err != nil {
		writeError(c, err)
		return
	}

	pool, err := h.appSvc.CreatePool(c.Request.Context(), req.Creator, params)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPoolView(pool, h.now()))
}

func (h *handler) listPools(c *gin.Context) {
	var req listPoolsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "invalid query")
		return
	}
	if req.CreatedAfter < 0 || req.CreatedBefore < 0 {
		badRequest(c, "invalid time bounds")
		return
	}

	pools, err := h.appSvc.ListPools(c.Request.Context(), req.CreatedAfter, req.CreatedBefore)
	if err != nil {
		writeError(c, err)
		return
	}
	now := h.now()
	views := make([]poolView, 0, len(pools))
	for _, pool := range pools {
		views = append(views, toPoolView(pool, now))
	}
	c.JSON(http.StatusOK, gin.H{"pools": views})
}

func (h *handler) getPool(c *gin.Context) {
	id, ok := poolId(c)
	if !ok {
		return
	}
	pool, err := h.appSvc.GetPool(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPoolView(pool, h.now()))
}

func (h *handler) getReport(c *gin.Context) {
	id, ok := poolId(c)
	if !ok {
		return
	}
	report, err := h.appSvc.GetSettlementReport(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toReportView(report, h.now()))
}

func (h *handler) placeBet(c *gin.Context) {
	id, ok := poolId(c)
	if !ok {
		return
	}
	var req betRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}

	receipt, err := h.appSvc.PlaceBet(
		c.Request.Context(), id, req.Participant, req.Option, req.Amount,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, betView{
		PoolId:      receipt.PoolId,
		Txid:        receipt.Txid,
		Participant: receipt.Participant,
		Option:      receipt.Option,
		Amount:      receipt.Amount,
		JoinFee:     receipt.JoinFee,
		Position: positionView{
			Participant: receipt.Position.Participant,
			Option:      receipt.Position.Option,
			Amount:      receipt.Position.Amount,
			Bets:        receipt.Position.Bets,
		},
	})
}

func (h *handler) proposeOutcome(c *gin.Context) {
	id, ok := poolId(c)
	if !ok {
		return
	}
	var req optionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	h.writePool(c)(h.appSvc.ProposeOutcome(c.Request.Context(), id, req.Signer, req.Option))
}

func (h *handler) challenge(c *gin.Context) {
	id, req, ok := signedRequest(c)
	if !ok {
		return
	}
	h.writePool(c)(h.appSvc.Challenge(c.Request.Context(), id, req.Signer))
}

func (h *handler) finalize(c *gin.Context) {
	id, req, ok := signedRequest(c)
	if !ok {
		return
	}
	h.writePool(c)(h.appSvc.Finalize(c.Request.Context(), id, req.Signer))
}

func (h *handler) claim(c *gin.Context) {
	id, req, ok := signedRequest(c)
	if !ok {
		return
	}
	writeClaim(c)(h.appSvc.Claim(c.Request.Context(), id, req.Signer))
}

func (h *handler) refund(c *gin.Context) {
	id, req, ok := signedRequest(c)
	if !ok {
		return
	}
	writeClaim(c)(h.appSvc.Refund(c.Request.Context(), id, req.Signer))
}

func (h *handler) writePool(c *gin.Context) func(*domain.Pool, error) {
	return func(pool *domain.Pool, err error) {
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toPoolView(pool, h.now()))
	}
}

func writeClaim(c *gin.Context) func(*application.ClaimReceipt, error) {
	return func(receipt *application.ClaimReceipt, err error) {
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, claimView{
			PoolId:      receipt.PoolId,
			Txid:        receipt.Txid,
			Participant: receipt.Participant,
			Amount:      receipt.Amount,
			Fee:         receipt.Fee,
		})
	}
}

func poolId(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid pool id")
		return 0, false
	}
	return id, true
}

func signedRequest(c *gin.Context) (uint64, signerRequest, bool) {
	var req signerRequest
	id, ok := poolId(c)
	if !ok {
		return 0, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return 0, req, false
	}
	return id, req, true
}
