// Package client is a REST client for the ERMS API, used by ermsctl.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/BruksfildServices01/erms-api/internal/dto"
	"github.com/BruksfildServices01/erms-api/internal/models"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Code)
}

// errorBody accepts both error shapes the API writes.
type errorBody struct {
	ErrorCode string `json:"error_code"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Details   string `json:"details"`
}

type Client struct {
	// read retries transient failures; write never retries so a timed out
	// assignment is not sent twice.
	read  *resty.Client
	write *resty.Client
	log   *zap.Logger
}

func New(baseURL, token string, log *zap.Logger) *Client {
	base := func() *resty.Client {
		c := resty.New().
			SetBaseURL(baseURL).
			SetTimeout(15*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json").
			SetError(&errorBody{})
		if token != "" {
			c.SetAuthToken(token)
		}
		return c
	}

	read := base().
		SetRetryCount(3).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})

	return &Client{read: read, write: base(), log: log}
}

// ======================================================
// PAYLOADS
// ======================================================

type ReportInput struct {
	RepairRequestID    uint                `json:"repairRequestId"`
	AssignedTo         uint                `json:"assignedTo,omitempty"`
	ServicePerformed   string              `json:"servicePerformed,omitempty"`
	PartsUsed          string              `json:"partsUsed,omitempty"`
	TechnicianComments string              `json:"technicianComments,omitempty"`
	ResultRating       string              `json:"resultRating"`
	TestResults        []models.TestResult `json:"testResults"`
}

type FeedbackInput struct {
	ServiceReportID     uint   `json:"serviceReportId"`
	Courtesy            string `json:"courtesy"`
	Communication       string `json:"communication"`
	Friendliness        string `json:"friendliness"`
	Professionalism     string `json:"professionalism"`
	OverallSatisfaction string `json:"overallSatisfaction"`
	Comments            string `json:"comments,omitempty"`
}

// ======================================================
// CALLS
// ======================================================

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	resp, err := c.write.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&out).
		Post("/auth/login")
	if err := check(resp, err); err != nil {
		return "", err
	}
	return out.Token, nil
}

// SetToken switches the bearer token, e.g. after Login.
func (c *Client) SetToken(token string) {
	c.read.SetAuthToken(token)
	c.write.SetAuthToken(token)
}

func (c *Client) Technicians(ctx context.Context, page, pageSize int) ([]models.User, error) {
	var out struct {
		Data struct {
			Users []models.User `json:"users"`
		} `json:"data"`
	}
	resp, err := c.read.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"roleId":   strconv.Itoa(int(models.RoleTechnician)),
			"page":     strconv.Itoa(page),
			"pageSize": strconv.Itoa(pageSize),
		}).
		SetResult(&out).
		Get("/user/profile")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Data.Users, nil
}

func (c *Client) AvailableTechnicians(ctx context.Context) ([]models.User, error) {
	var out []models.User
	resp, err := c.read.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/tasks/available-technicians")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Assign(ctx context.Context, repairRequestID, technicianID uint) (*dto.AssignTechnicianResponse, error) {
	var out dto.AssignTechnicianResponse
	resp, err := c.write.R().
		SetContext(ctx).
		SetBody(map[string]uint{
			"repairRequestId": repairRequestID,
			"technicianId":    technicianID,
		}).
		SetResult(&out).
		Post("/tasks/assignments")
	if err := check(resp, err); err != nil {
		return nil, err
	}

	c.log.Info("technician assigned",
		zap.Uint("repair_request_id", repairRequestID),
		zap.Uint("technician_id", technicianID),
		zap.Uint("assignment_id", out.Assignment.ID),
	)
	return &out, nil
}

// Assignments lists assignments, all of them when technicianID is zero.
func (c *Client) Assignments(ctx context.Context, technicianID uint) ([]dto.AssignmentDTO, error) {
	var out []dto.AssignmentDTO
	req := c.read.R().SetContext(ctx).SetResult(&out)
	if technicianID != 0 {
		req.SetQueryParam("technicianId", strconv.FormatUint(uint64(technicianID), 10))
	}
	resp, err := req.Get("/tasks/assignments")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SubmitReport(ctx context.Context, in ReportInput) (*models.ServiceReport, error) {
	var out models.ServiceReport
	resp, err := c.write.R().
		SetContext(ctx).
		SetBody(in).
		SetResult(&out).
		Post("/repairs/service-reports")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SubmitFeedback(ctx context.Context, in FeedbackInput) (*models.UserFeedback, error) {
	var out models.UserFeedback
	resp, err := c.write.R().
		SetContext(ctx).
		SetBody(in).
		SetResult(&out).
		Post("/feedbacks")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if !resp.IsError() {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode()}
	if body, ok := resp.Error().(*errorBody); ok && body != nil {
		apiErr.Code = body.ErrorCode
		if apiErr.Code == "" {
			apiErr.Code = body.Error
		}
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Details
		}
	}
	if apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode())
	}
	return apiErr
}
