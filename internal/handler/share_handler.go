package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mpan/internal/pkg/errcode"
	"github.com/xxxsen/mpan/internal/pkg/response"
	"github.com/xxxsen/mpan/internal/service"
)

type ShareHandler struct {
	shares *service.ShareService
}

func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

type generateLinkRequest struct {
	FileID      string   `json:"file_id"`
	IsPrivacy   bool     `json:"is_privacy"`
	ExpireDate  string   `json:"expire_date"`
	Permissions []string `json:"permissions"`
}

func (h *ShareHandler) GenerateLink(c *gin.Context) {
	var req generateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	view, err := h.shares.GenerateLink(c.Request.Context(), service.GenerateLinkInput{
		UserID:      getUserID(c),
		FileID:      req.FileID,
		IsPrivacy:   req.IsPrivacy,
		ExpireDate:  req.ExpireDate,
		Permissions: req.Permissions,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

func (h *ShareHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	if page < 0 {
		page = 0
	}
	if pageSize < 0 {
		pageSize = 0
	}
	result, err := h.shares.ListShares(c.Request.Context(), service.ListSharesInput{
		UserID:   getUserID(c),
		SortBy:   c.Query("sort_by"),
		Order:    c.Query("order"),
		Page:     uint(page),
		PageSize: uint(pageSize),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

type cancelShareRequest struct {
	ShareIDs []string `json:"share_ids"`
}

func (h *ShareHandler) Cancel(c *gin.Context) {
	var req cancelShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.shares.CancelShare(c.Request.Context(), req.ShareIDs); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ShareHandler) Sharer(c *gin.Context) {
	info, err := h.shares.DescribeSharer(c.Request.Context(), c.Query("share_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, info)
}
