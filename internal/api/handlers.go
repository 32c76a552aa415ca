package api

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fundscope/internal/ledger"
	"fundscope/internal/model"
)

// campaignResponse merges the on-chain record with the optional metadata
// overlay. Financial fields always come from the chain.
type campaignResponse struct {
	model.Campaign
	IsFlexible bool            `json:"is_flexible"`
	Metadata   *model.Metadata `json:"metadata,omitempty"`
}

func (s *Server) handleListCampaigns(c *gin.Context) {
	campaigns := s.catalog.Snapshot()
	out := make([]campaignResponse, 0, len(campaigns))
	for _, campaign := range campaigns {
		out = append(out, s.enrich(c, campaign))
	}
	c.JSON(http.StatusOK, gin.H{
		"campaigns":    out,
		"total":        len(out),
		"is_connected": s.catalog.IsConnected(),
	})
}

func (s *Server) handleGetCampaign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	campaign, found := s.catalog.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"campaign": s.enrich(c, campaign)})
}

func (s *Server) handleEligibility(c *gin.Context) {
	if s.evaluator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "eligibility evaluation not configured"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	account, ok := parseAddress(c)
	if !ok {
		return
	}

	action := model.DisbursementAction(c.DefaultQuery("action", string(model.ActionRefund)))
	if action != model.ActionRefund && action != model.ActionWithdraw {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be refund or withdraw"})
		return
	}

	campaign, found := s.catalog.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}

	elig, mode, err := s.evaluator.Evaluate(c.Request.Context(), action, campaign, account)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"eligibility": elig, "mode": mode})
}

func (s *Server) handleAccountDonations(c *gin.Context) {
	account, ok := parseAddress(c)
	if !ok {
		return
	}

	view, err := ledger.BuildView(c.Request.Context(), s.ledger, account, s.catalog.IDs(), s.logger)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	// The view, not the catalog, decides presence: an aggregate-reported
	// donation to a campaign the catalog has not loaded yet still counts.
	donations := make([]model.Donation, 0, len(view.Donations))
	for _, d := range view.Donations {
		donations = append(donations, d)
	}
	sort.Slice(donations, func(i, j int) bool {
		return donations[i].CampaignID < donations[j].CampaignID
	})

	resp := gin.H{"account": view.Account, "donations": donations}

	// History is best-effort enrichment; an empty result is valid.
	if s.scanner != nil {
		history, err := s.scanner.Scan(c.Request.Context(), account)
		if err != nil {
			s.logger.Warn("history scan failed", zap.String("account", account.Hex()), zap.Error(err))
			history = nil
		}
		if history == nil {
			history = []model.DonationEvent{}
		}
		resp["history"] = history
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handlePutMetadata(c *gin.Context) {
	if s.meta == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metadata store not configured"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var meta model.Metadata
	if err := c.ShouldBindJSON(&meta); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	meta.CampaignID = id

	if err := s.meta.PutMetadata(c.Request.Context(), meta); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"metadata": meta})
}

func (s *Server) handleDisburse(c *gin.Context) {
	if s.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "disbursements not configured"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}

	var body struct {
		Action model.DisbursementAction `json:"action"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if body.Action != model.ActionRefund && body.Action != model.ActionWithdraw {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be refund or withdraw"})
		return
	}

	campaign, found := s.catalog.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "campaign not found"})
		return
	}

	outcome, err := s.runner.Execute(c.Request.Context(), body.Action, campaign, s.operator)
	if err != nil {
		// Short message only; the runner is already back in a
		// retry-ready state.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "outcome": outcome})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

func (s *Server) enrich(c *gin.Context, campaign model.Campaign) campaignResponse {
	resp := campaignResponse{Campaign: campaign, IsFlexible: campaign.IsFlexible()}
	if s.meta == nil {
		return resp
	}
	meta, found, err := s.meta.GetMetadata(c.Request.Context(), campaign.ID)
	if err != nil {
		s.logger.Debug("metadata read failed", zap.Uint64("id", campaign.ID), zap.Error(err))
		return resp
	}
	if found {
		resp.Metadata = &meta
	}
	return resp
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid campaign id"})
		return 0, false
	}
	return id, true
}

func parseAddress(c *gin.Context) (common.Address, bool) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid account address"})
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}
