package domain

import (
	"errors"
)

var (
	MessageSuccessCreatePayment = "payment transaction created successfully"
	MessageSuccessWebhook       = "payment notification processed"

	MessageFailedCreatePayment = "failed to create payment transaction"
	MessageFailedWebhook       = "failed to process payment notification"

	ErrPaymentFailed       = errors.New("payment failed")
	ErrUnknownPaymentState = errors.New("unknown payment transaction status")
)

type (
	CreatePaymentRequest struct {
		OrderID string `json:"order_id" validate:"required,uuid"`
		Email   string `json:"email" validate:"required,email"`
	}

	CreatePaymentResponse struct {
		OrderID    string `json:"order_id"`
		Token      string `json:"token"`
		InvoiceURL string `json:"invoice_url"`
	}

	// PaymentNotification is the subset of the gateway webhook body the core
	// needs to drive an order-status transition.
	PaymentNotification struct {
		OrderID           string `json:"order_id"`
		TransactionStatus string `json:"transaction_status"`
		FraudStatus       string `json:"fraud_status"`
	}
)
