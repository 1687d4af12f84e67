package handler

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

const callerKey = "caller_address"

// CallerAddressHeader 身份层传入的调用者地址头。身份认证在网关
// 完成，核心信任该地址已经过签名校验。
const CallerAddressHeader = "X-Caller-Address"

// IdentityMiddleware 提取并校验调用者地址，写操作必需
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		addr := c.GetHeader(CallerAddressHeader)
		if addr == "" {
			ErrorResponse(c, http.StatusUnauthorized, "缺少调用者地址")
			c.Abort()
			return
		}
		if !common.IsHexAddress(addr) {
			ErrorResponse(c, http.StatusUnauthorized, "非法的调用者地址")
			c.Abort()
			return
		}
		c.Set(callerKey, common.HexToAddress(addr).Hex())
		c.Next()
	}
}

// CallerAddress 取出中间件写入的调用者地址
func CallerAddress(c *gin.Context) string {
	return c.GetString(callerKey)
}
