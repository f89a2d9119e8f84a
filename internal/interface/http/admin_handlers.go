package httpservice

import (
	"net/http"

	"github.com/ark-network/wager/internal/core/application"
	"github.com/gin-gonic/gin"
)

type adminHandler struct {
	adminSvc application.AdminService
	now      func() int64
}

func (h *adminHandler) resolveDispute(c *gin.Context) {
	id, ok := poolId(c)
	if !ok {
		return
	}
	var req optionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	pool, err := h.adminSvc.ResolveDispute(c.Request.Context(), req.Signer, id, req.Option)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPoolView(pool, h.now()))
}

func (h *adminHandler) cancelPool(c *gin.Context) {
	id, req, ok := signedRequest(c)
	if !ok {
		return
	}
	pool, err := h.adminSvc.CancelPool(c.Request.Context(), req.Signer, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPoolView(pool, h.now()))
}

func (h *adminHandler) triggerSettlement(c *gin.Context) {
	id, req, ok := signedRequest(c)
	if !ok {
		return
	}
	result, err := h.adminSvc.TriggerSettlement(c.Request.Context(), req.Signer, id)
	if err != nil {
		writeError(c, err)
		return
	}

	view := attemptView{
		PoolId:  result.PoolId,
		Outcome: result.Outcome.String(),
		Txid:    result.Txid,
	}
	if result.Pool != nil {
		pool := toPoolView(result.Pool, h.now())
		view.Pool = &pool
	}
	c.JSON(http.StatusOK, view)
}

func (h *adminHandler) getScheduledPools(c *gin.Context) {
	pools, err := h.adminSvc.GetScheduledPools(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	views := make([]trackedPoolView, 0, len(pools))
	for _, p := range pools {
		views = append(views, trackedPoolView{
			PoolId:    p.PoolId,
			Deadline:  p.Deadline,
			Phase:     p.Phase.String(),
			Scheduled: p.Scheduled,
			InFlight:  p.InFlight,
			Attempts:  p.Attempts,
			LastError: p.LastError,
		})
	}
	c.JSON(http.StatusOK, gin.H{"pools": views})
}

func (h *adminHandler) getFeeConfig(c *gin.Context) {
	fees, err := h.adminSvc.GetFeeConfig(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFeeConfigView(fees))
}

func (h *adminHandler) updateFeeConfig(c *gin.Context) {
	var req feeUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	fees, err := h.adminSvc.UpdateFeeConfig(c.Request.Context(), req.Signer, req.update())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFeeConfigView(fees))
}

func (h *adminHandler) setAdmin(c *gin.Context) {
	var req setAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	fees, err := h.adminSvc.SetAdmin(c.Request.Context(), req.Signer, req.Admin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFeeConfigView(fees))
}
