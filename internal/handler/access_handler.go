package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/mpan/internal/pkg/errcode"
	"github.com/xxxsen/mpan/internal/pkg/response"
	"github.com/xxxsen/mpan/internal/service"
)

// Share-Token travels in its own header so it never collides with the
// account bearer token.
const shareTokenHeader = "Share-Token"

type AccessHandler struct {
	access *service.AccessService
}

func NewAccessHandler(access *service.AccessService) *AccessHandler {
	return &AccessHandler{access: access}
}

func shareToken(c *gin.Context) string {
	if token := c.GetHeader(shareTokenHeader); token != "" {
		return token
	}
	return c.Query("share_token")
}

func (h *AccessHandler) Validate(c *gin.Context) {
	shareID := c.Query("share_id")
	if shareID == "" {
		response.Error(c, errcode.ErrMissingParam, "missing parameter")
		return
	}
	result, err := h.access.ValidateAccess(c.Request.Context(), shareID, shareToken(c), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"status": result.Status.String(),
		"share":  result.Share,
	})
}

type validateCodeRequest struct {
	ShareID        string `json:"share_id"`
	ExtractionCode string `json:"extraction_code"`
}

func (h *AccessHandler) ValidateCode(c *gin.Context) {
	var req validateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	result, err := h.access.ValidateExtractionCode(c.Request.Context(), req.ShareID, req.ExtractionCode)
	if err != nil {
		handleError(c, err)
		return
	}
	if !result.OK {
		response.Error(c, errcode.ErrCodeMismatch, "extraction code mismatch")
		return
	}
	response.Success(c, gin.H{"share_token": result.Token})
}
