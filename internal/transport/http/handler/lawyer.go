package handler

import (
	"github.com/gin-gonic/gin"

	"constitution-gpt/internal/app"
	"constitution-gpt/internal/model"
	"constitution-gpt/internal/transport/http/response"
)

type LawyerHandler struct {
	lawyerService *app.LawyerService
	reviewService *app.ReviewService
}

type VerifyLawyerRequest struct {
	LawyerID   uint  `json:"lawyer_id" binding:"required,gt=0"`
	IsVerified *bool `json:"is_verified" binding:"required"`
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

func NewLawyerHandler(lawyerService *app.LawyerService, reviewService *app.ReviewService) *LawyerHandler {
	return &LawyerHandler{lawyerService: lawyerService, reviewService: reviewService}
}

func lawyerViews(users []model.User) []userView {
	out := make([]userView, 0, len(users))
	for i := range users {
		out = append(out, newUserView(&users[i]))
	}
	return out
}

func (h *LawyerHandler) List(c *gin.Context) {
	lawyers, err := h.lawyerService.ListVerified(c.Request.Context(), c.Query("city"))
	if err != nil {
		writeError(c, err, "list lawyers failed")
		return
	}
	response.OK(c, gin.H{"lawyers": lawyerViews(lawyers)})
}

func (h *LawyerHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	lawyer, err := h.lawyerService.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "get lawyer failed")
		return
	}
	response.OK(c, newUserView(lawyer))
}

func (h *LawyerHandler) AdminList(c *gin.Context) {
	lawyers, err := h.lawyerService.AdminList(c.Request.Context())
	if err != nil {
		writeError(c, err, "list lawyers failed")
		return
	}
	response.OK(c, gin.H{"lawyers": lawyerViews(lawyers)})
}

func (h *LawyerHandler) Verify(c *gin.Context) {
	var req VerifyLawyerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	if err := h.lawyerService.SetVerified(c.Request.Context(), req.LawyerID, *req.IsVerified); err != nil {
		writeError(c, err, "verify lawyer failed")
		return
	}
	response.OK(c, gin.H{"lawyer_id": req.LawyerID, "is_verified": *req.IsVerified})
}

func (h *LawyerHandler) Reviews(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	summary, err := h.reviewService.List(c.Request.Context(), id)
	if err != nil {
		writeError(c, err, "list reviews failed")
		return
	}
	response.OK(c, summary)
}

func (h *LawyerHandler) CreateReview(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	lawyerID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	review, err := h.reviewService.Create(c.Request.Context(), app.ReviewInput{
		LawyerID: lawyerID,
		UserID:   userID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		writeError(c, err, "create review failed")
		return
	}
	response.Created(c, review)
}
