package payment

import (
	"context"
	"os"

	"kopimatic/domain"
	"kopimatic/entities"
	"kopimatic/pkg/order"

	"github.com/gofiber/fiber/v2/log"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

type (
	PaymentService interface {
		// CreateTransaction opens a Snap payment page for a pending order and
		// returns the token plus redirect URL the kiosk renders as a QR code.
		CreateTransaction(ctx context.Context, req domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error)
		// HandleNotification applies a gateway webhook to the order it names.
		// The gateway retries deliveries, so the same notification may arrive
		// more than once; finalization stays single-shot either way.
		HandleNotification(ctx context.Context, notification domain.PaymentNotification) error
	}

	paymentService struct {
		orderService order.OrderService
		client       snap.Client
	}
)

func NewPaymentService(orderService order.OrderService) PaymentService {
	env := midtrans.Sandbox
	if os.Getenv("IS_PROD") == "true" {
		env = midtrans.Production
	}

	var client snap.Client
	client.New(os.Getenv("SERVER_KEY"), env)

	return &paymentService{
		orderService: orderService,
		client:       client,
	}
}

func (s *paymentService) CreateTransaction(ctx context.Context, req domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	ord, err := s.orderService.GetOrderByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if ord.Status != entities.OrderStatusPending {
		return nil, domain.ErrInvalidOrderStatus
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  ord.ID,
			GrossAmt: int64(ord.Bill),
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: req.Email,
		},
	}

	resp, midErr := s.client.CreateTransaction(snapReq)
	if midErr != nil {
		log.Errorf("midtrans create transaction for order %s: %v", ord.ID, midErr)
		return nil, domain.ErrPaymentFailed
	}

	return &domain.CreatePaymentResponse{
		OrderID:    ord.ID,
		Token:      resp.Token,
		InvoiceURL: resp.RedirectURL,
	}, nil
}

func (s *paymentService) HandleNotification(ctx context.Context, notification domain.PaymentNotification) error {
	switch notification.TransactionStatus {
	case "settlement":
		return s.orderService.FinalizeOrder(ctx, notification.OrderID)
	case "capture":
		if notification.FraudStatus == "accept" {
			return s.orderService.FinalizeOrder(ctx, notification.OrderID)
		}
		return s.orderService.UpdateOrderStatus(ctx, notification.OrderID, entities.OrderStatusFailed)
	case "deny", "expire", "failure":
		return s.orderService.UpdateOrderStatus(ctx, notification.OrderID, entities.OrderStatusFailed)
	case "cancel":
		return s.orderService.UpdateOrderStatus(ctx, notification.OrderID, entities.OrderStatusCancelled)
	case "pending":
		return nil
	default:
		return domain.ErrUnknownPaymentState
	}
}
