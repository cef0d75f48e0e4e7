package payment

import (
	"errors"
	"fmt"

	"github.com/bricollano/server/internal/module/payment/provider"
	sharederrors "github.com/bricollano/server/internal/shared/errors"
)

// Module errors.
var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNotRefundable    = errors.New("payment is not refundable")
	ErrProviderNotFound = errors.New("payment provider not found")

	// ErrNotPayer marks a ledger read by someone other than the payer who
	// owns the rows.
	ErrNotPayer = fmt.Errorf("%w: caller is not the booking payer", sharederrors.ErrForbidden)

	// ErrPersistenceFailed marks a refund that succeeded at the gateway but
	// could not be recorded locally. It always requires reconciliation.
	ErrPersistenceFailed = errors.New("refund persisted at gateway but local write failed")

	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")

	// Gateway classification, re-exported from the provider package so
	// callers depend on one error surface.
	ErrGatewayTransient = provider.ErrTransient
	ErrGatewayRejected  = provider.ErrRejected
)
