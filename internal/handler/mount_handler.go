package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mpan/internal/pkg/errcode"
	"github.com/xxxsen/mpan/internal/pkg/response"
	"github.com/xxxsen/mpan/internal/service"
)

type MountHandler struct {
	mounts *service.MountService
}

func NewMountHandler(mounts *service.MountService) *MountHandler {
	return &MountHandler{mounts: mounts}
}

type mountRequest struct {
	ShareID string `json:"share_id"`
	FileID  string `json:"file_id"` // target parent folder, "0" for root
}

func (h *MountHandler) Mount(c *gin.Context) {
	var req mountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	err := h.mounts.MountFile(c.Request.Context(), service.MountInput{
		ShareID:  req.ShareID,
		UserID:   getUserID(c),
		ParentID: req.FileID,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
