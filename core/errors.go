package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	WebhookErrorBadInput         = "WEBHOOKS_BAD_INPUT"
	WebhookErrorEndpointNotFound = "WEBHOOKS_ENDPOINT_NOT_FOUND"
	WebhookErrorDeliveryNotFound = "WEBHOOKS_DELIVERY_NOT_FOUND"
	WebhookErrorDeliveryFailed   = "WEBHOOKS_DELIVERY_FAILED"
	WebhookErrorStoreFailed      = "WEBHOOKS_STORE_FAILED"
	WebhookErrorInternal         = "WEBHOOKS_INTERNAL_ERROR"
)

func webhookErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureWebhookErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrEndpointNotFound):
		return newCategorizedError(err.Error(), goerrors.CategoryNotFound, WebhookErrorEndpointNotFound)
	case errors.Is(err, ErrDeliveryNotFound):
		return newCategorizedError(err.Error(), goerrors.CategoryNotFound, WebhookErrorDeliveryNotFound)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "endpoint") && strings.Contains(msg, "not found"):
		return newCategorizedError(err.Error(), goerrors.CategoryNotFound, WebhookErrorEndpointNotFound)
	case strings.Contains(msg, "delivery") && strings.Contains(msg, "not found"):
		return newCategorizedError(err.Error(), goerrors.CategoryNotFound, WebhookErrorDeliveryNotFound)
	case strings.Contains(msg, "store"), strings.Contains(msg, "ledger"):
		return newCategorizedError(err.Error(), goerrors.CategoryInternal, WebhookErrorStoreFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newCategorizedError(err.Error(), goerrors.CategoryBadInput, WebhookErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureWebhookErrorEnvelope(mapped)
}

func newWebhookError(message string) error {
	return newCategorizedError(message, goerrors.CategoryBadInput, WebhookErrorBadInput)
}

func newCategorizedError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureWebhookErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureWebhookErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = webhookHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultWebhookTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultWebhookTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return WebhookErrorBadInput
	case goerrors.CategoryNotFound:
		return WebhookErrorEndpointNotFound
	case goerrors.CategoryOperation, goerrors.CategoryExternal:
		return WebhookErrorDeliveryFailed
	default:
		return WebhookErrorInternal
	}
}

func webhookHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
