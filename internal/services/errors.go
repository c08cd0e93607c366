package services

import "errors"

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrProductNotFound         = errors.New("product not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrInvalidStatus           = errors.New("invalid order status")
	ErrInvalidTransition       = errors.New("invalid status transition")
	ErrInvalidQuantity         = errors.New("quantity must be a positive integer")
	ErrTrackingNumberRequired  = errors.New("tracking number is required")
	ErrPaymentGatewayFailure   = errors.New("payment gateway failure")
	ErrPaymentGatewayTimeout   = errors.New("payment gateway timeout")
	ErrPaymentAlreadyProcessed = errors.New("payment already processed")
	ErrPermissionDenied        = errors.New("permission denied")
	ErrSuperAdminProtected     = errors.New("super admin accounts cannot be modified")
	ErrSelfDeactivation        = errors.New("cannot deactivate your own account")
	ErrEmailTaken              = errors.New("email already registered")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrAccountInactive         = errors.New("account is deactivated")
	ErrFileNotFound            = errors.New("file not found")
	ErrUnsupportedFileType     = errors.New("only image files are allowed")
	ErrFileTooLarge            = errors.New("file too large")
	ErrNoRecipient             = errors.New("no customer email available")
)
