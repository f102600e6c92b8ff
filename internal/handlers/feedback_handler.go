package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/erms-api/internal/httperr"
	"github.com/BruksfildServices01/erms-api/internal/httpresp"
	ucFeedback "github.com/BruksfildServices01/erms-api/internal/usecase/feedback"
)

type FeedbackHandler struct {
	submit *ucFeedback.SubmitFeedback
	list   *ucFeedback.ListFeedbacks
}

func NewFeedbackHandler(
	submit *ucFeedback.SubmitFeedback,
	list *ucFeedback.ListFeedbacks,
) *FeedbackHandler {
	return &FeedbackHandler{submit: submit, list: list}
}

type SubmitFeedbackRequest struct {
	ServiceReportID     uint   `json:"serviceReportId" binding:"required"`
	Courtesy            string `json:"courtesy" binding:"required"`
	Communication       string `json:"communication" binding:"required"`
	Friendliness        string `json:"friendliness" binding:"required"`
	Professionalism     string `json:"professionalism" binding:"required"`
	OverallSatisfaction string `json:"overallSatisfaction" binding:"required"`
	Comments            string `json:"comments"`
}

func (h *FeedbackHandler) Submit(c *gin.Context) {
	sess, ok := mustSession(c)
	if !ok {
		return
	}

	var req SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	f, err := h.submit.Execute(c.Request.Context(), sess, ucFeedback.SubmitFeedbackInput{
		ServiceReportID:     req.ServiceReportID,
		Courtesy:            req.Courtesy,
		Communication:       req.Communication,
		Friendliness:        req.Friendliness,
		Professionalism:     req.Professionalism,
		OverallSatisfaction: req.OverallSatisfaction,
		Comments:            req.Comments,
	})
	if err != nil {
		httperr.FromBusiness(c, err, "failed_to_submit_feedback")
		return
	}

	c.JSON(http.StatusCreated, f)
}

func (h *FeedbackHandler) List(c *gin.Context) {
	feedbacks, err := h.list.Execute(c.Request.Context())
	if err != nil {
		httperr.Internal(c, "failed_to_list_feedbacks", "Could not list feedbacks.")
		return
	}

	httpresp.Collection(c, "feedbacks", feedbacks, nil)
}
