package handler

import (
	"github.com/labstack/echo/v4"

	"marketchat/internal/domain/entity"
	"marketchat/internal/usecase"
	"marketchat/pkg/response"
)

// NotificationHandler is the admin/service boundary the purchase workflow
// calls into.
type NotificationHandler struct {
	notifier *usecase.Notifier
}

func NewNotificationHandler(notifier *usecase.Notifier) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
	}
}

type notifyRequest struct {
	Scope       string `json:"scope" validate:"required,oneof=user room all"`
	RoomID      string `json:"room_id"`
	RecipientID string `json:"recipient_id"`
	ExcludeID   string `json:"exclude_id"`
	Type        string `json:"type"`
	Content     string `json:"content" validate:"required,max=2000"`
}

type workflowRequest struct {
	SubjectID     string `json:"subject_id" validate:"required"`
	BuyerID       string `json:"buyer_id" validate:"required"`
	SellerID      string `json:"seller_id" validate:"required"`
	TransactionID string `json:"transaction_id" validate:"required"`
	Type          string `json:"type" validate:"required"`
}

func (h *NotificationHandler) Notify(c echo.Context) error {
	adminID, err := currentUserID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req notifyRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	msgType := entity.MessageType(req.Type)
	if msgType == "" {
		msgType = entity.MessageNotice
	}

	result, err := h.notifier.Notify(c.Request().Context(), usecase.Notification{
		Scope:       usecase.DeliveryScope(req.Scope),
		RoomID:      req.RoomID,
		RecipientID: req.RecipientID,
		ExcludeID:   req.ExcludeID,
		SenderID:    adminID,
		Type:        msgType,
		Content:     req.Content,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, result)
}

// NotifyWorkflow posts the prompt for one transaction step into the buyer/seller room.
func (h *NotificationHandler) NotifyWorkflow(c echo.Context) error {
	var req workflowRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.notifier.NotifyWorkflow(c.Request().Context(), usecase.WorkflowInput{
		SubjectID:     req.SubjectID,
		BuyerID:       req.BuyerID,
		SellerID:      req.SellerID,
		TransactionID: req.TransactionID,
		Type:          entity.MessageType(req.Type),
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, result)
}
