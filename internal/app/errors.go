package app

import "errors"

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrLeadNotFound = errors.New("lead not found")
	ErrBookNotFound = errors.New("book not found")

	ErrNotLeadOwner     = errors.New("lead belongs to another account")
	ErrCVAlreadySent    = errors.New("cv already submitted")
	ErrCVWindowClosed   = errors.New("cv submission window is closed")
	ErrCVNotPDF         = errors.New("cv must be a pdf file")
	ErrCVTooLarge       = errors.New("cv file exceeds 5MB")
	ErrNoPrimaryBook    = errors.New("no primary book configured")
	ErrContentForbidden = errors.New("full content requires an active approval")
)
