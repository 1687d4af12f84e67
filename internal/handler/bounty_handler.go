package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mohitagarwal24/ResQ/internal/ledger"
)

// BountyHandler 悬赏写路径与权威快照读路径
type BountyHandler struct {
	ledger *ledger.Ledger
}

// NewBountyHandler 创建悬赏处理器
func NewBountyHandler(l *ledger.Ledger) *BountyHandler {
	return &BountyHandler{ledger: l}
}

// CreateBountyRequest 创建悬赏请求
type CreateBountyRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	GoalAmount    int64  `json:"goal_amount" binding:"required"`
	Location      string `json:"location"`
	OrganizerName string `json:"organizer_name"`
	ImageURL      string `json:"image_url"`
}

// CreateBounty 创建悬赏，调用者成为组织者
func (h *BountyHandler) CreateBounty(c *gin.Context) {
	var req CreateBountyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.ledger.CreateBounty(CallerAddress(c), ledger.CreateBountyParams{
		Title:         req.Title,
		Description:   req.Description,
		GoalAmount:    req.GoalAmount,
		Location:      req.Location,
		OrganizerName: req.OrganizerName,
		ImageURL:      req.ImageURL,
	})
	if err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "悬赏创建成功", gin.H{"bounty_id": id})
}

// GetBounties 获取全部悬赏快照，按 id 升序
func (h *BountyHandler) GetBounties(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "", gin.H{"bounties": h.ledger.GetAllBounties()})
}

// GetBounty 获取单个悬赏快照
func (h *BountyHandler) GetBounty(c *gin.Context) {
	id, err := parseBountyID(c)
	if err != nil {
		return
	}

	bounty, err := h.ledger.GetBounty(id)
	if err != nil {
		LedgerErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", gin.H{"bounty": bounty})
}

// DonateRequest 捐款请求
type DonateRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// Donate 捐款
func (h *BountyHandler) Donate(c *gin.Context) {
	id, err := parseBountyID(c)
	if err != nil {
		return
	}

	var req DonateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	donation, err := h.ledger.Donate(CallerAddress(c), id, req.Amount)
	if err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, "捐款成功", gin.H{"donation": donation})
}

// SubmitProofRequest 提交证明请求
type SubmitProofRequest struct {
	ProofIpfsHash string `json:"proof_ipfs_hash" binding:"required"`
}

// SubmitProof 组织者提交救援证明
func (h *BountyHandler) SubmitProof(c *gin.Context) {
	id, err := parseBountyID(c)
	if err != nil {
		return
	}

	var req SubmitProofRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledger.SubmitProof(CallerAddress(c), id, req.ProofIpfsHash); err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "证明已提交，等待审核", nil)
}

// ReleaseRequest 审核放款请求
type ReleaseRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// Release 审核放款或驳回
func (h *BountyHandler) Release(c *gin.Context) {
	id, err := parseBountyID(c)
	if err != nil {
		return
	}

	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledger.Release(CallerAddress(c), id, *req.Verified); err != nil {
		LedgerErrorResponse(c, err)
		return
	}

	if *req.Verified {
		SuccessResponse(c, http.StatusOK, "审核通过，资金已放款", nil)
	} else {
		SuccessResponse(c, http.StatusOK, "审核驳回，悬赏重新开放", nil)
	}
}

// parseBountyID 解析路径中的悬赏ID，失败时已写入响应
func parseBountyID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无效的悬赏ID")
		return 0, err
	}
	return id, nil
}
