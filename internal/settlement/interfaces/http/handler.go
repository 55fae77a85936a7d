// Package http 提供账户快照的只读查询接口
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/paymentsengine/internal/settlement/application"
	"github.com/wyfcoding/paymentsengine/internal/settlement/domain"
	"github.com/wyfcoding/paymentsengine/pkg/response"
)

// AccountHandler 账户查询 HTTP 处理器
// 只读取应用层已发布的快照副本，不会阻塞或干扰交易处理管道。
type AccountHandler struct {
	app *application.SettlementService
}

// NewAccountHandler 创建 HTTP 处理器实例
func NewAccountHandler(app *application.SettlementService) *AccountHandler {
	return &AccountHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *AccountHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/accounts", h.ListAccounts)
		api.GET("/accounts/:id", h.GetAccount)
	}
}

// Health 健康检查
func (h *AccountHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListAccounts 列出全部账户快照，按客户端 ID 升序
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	response.Success(c, h.app.Accounts())
}

// GetAccount 按客户端 ID 查询单个账户快照
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 16)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid client id", err.Error())
		return
	}

	account, ok := h.app.Account(domain.ClientID(id))
	if !ok {
		response.ErrorWithStatus(c, http.StatusNotFound, "account not found", "")
		return
	}

	response.Success(c, account)
}
