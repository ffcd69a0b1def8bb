package validate

import "errors"

var (
	ErrInvalidCellID   = errors.New("invalid cell id")
	ErrCellIDTooLong   = errors.New("cell id too long")
	ErrContentTooLarge = errors.New("content too large")
	ErrInvalidText     = errors.New("text is not valid UTF-8")
	ErrInvalidColumn   = errors.New("invalid column")
	ErrInvalidApproval = errors.New("invalid approval status")
)
