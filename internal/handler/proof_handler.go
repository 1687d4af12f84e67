package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mohitagarwal24/ResQ/internal/ipfs"
)

// ProofHandler 救援证明文件上传。文件固定到 IPFS 后返回 CID，
// 组织者随后把 CID 作为证明引用提交给账本。
type ProofHandler struct {
	client *ipfs.Client
}

// NewProofHandler 创建证明上传处理器
func NewProofHandler(client *ipfs.Client) *ProofHandler {
	return &ProofHandler{client: client}
}

// UploadProof 上传证明文件到 IPFS
func (h *ProofHandler) UploadProof(c *gin.Context) {
	if !h.client.Enabled() {
		ErrorResponse(c, http.StatusServiceUnavailable, "未配置 IPFS 上传服务")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "缺少上传文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "无法读取上传文件")
		return
	}
	defer file.Close()

	cid, err := h.client.PinFile(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		ErrorResponse(c, http.StatusBadGateway, err.Error())
		return
	}

	SuccessResponse(c, http.StatusOK, "文件已上传", gin.H{"ipfs_hash": cid})
}
