package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mohitagarwal24/ResQ/internal/repository"
	"github.com/mohitagarwal24/ResQ/internal/treasury"
)

// QueryHandler 读模型查询。数据来自索引器投影，与账本状态
// 最终一致，仅供展示，绝非权威记录。
type QueryHandler struct {
	readModel  *repository.ReadModelStore
	eventStore *repository.EventStore
	treasury   *treasury.Treasury
}

// NewQueryHandler 创建查询处理器
func NewQueryHandler(readModel *repository.ReadModelStore, eventStore *repository.EventStore, t *treasury.Treasury) *QueryHandler {
	return &QueryHandler{
		readModel:  readModel,
		eventStore: eventStore,
		treasury:   t,
	}
}

// GetDonations 悬赏捐款历史，分页，新的在前
func (h *QueryHandler) GetDonations(c *gin.Context) {
	id, err := parseBountyID(c)
	if err != nil {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	donations, total, err := h.readModel.ListDonations(id, page, pageSize)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"donations": donations,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetBountyStats 悬赏募捐统计
func (h *QueryHandler) GetBountyStats(c *gin.Context) {
	id, err := parseBountyID(c)
	if err != nil {
		return
	}

	stats, err := h.readModel.GetBountyStats(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ErrorResponse(c, http.StatusNotFound, "悬赏不存在")
			return
		}
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{"stats": stats})
}

// GetEvents 按 seq 游标轮询事件日志。外部读模型以此重建状态，
// 替代零散的 UI 刷新通知。
func (h *QueryHandler) GetEvents(c *gin.Context) {
	afterSeq, _ := strconv.ParseUint(c.DefaultQuery("after_seq", "0"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := h.eventStore.ListEvents(afterSeq, limit)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{"events": events})
}

// GetBalance 账户已结算余额
func (h *QueryHandler) GetBalance(c *gin.Context) {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		ErrorResponse(c, http.StatusBadRequest, "非法的账户地址")
		return
	}

	SuccessResponse(c, http.StatusOK, "", gin.H{
		"address": common.HexToAddress(address).Hex(),
		"balance": h.treasury.Balance(address),
	})
}
