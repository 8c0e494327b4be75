package campaign

import (
	"strconv"

	"github.com/shopspring/decimal"
	apperrors "github.com/taliva/escrow/internal/platform/errors"
)

// DefaultAmountScale is the number of decimal places amounts may carry when
// no scale is configured. Six matches USDC.
const DefaultAmountScale int32 = 6

// DefaultCurrency is the denomination used when none is configured.
const DefaultCurrency = "USDC"

// ValidateAmount checks that amount is positive and representable at scale.
func ValidateAmount(amount decimal.Decimal, scale int32) error {
	if !amount.IsPositive() || !amount.Equal(amount.Truncate(scale)) {
		return apperrors.WithMetadata(apperrors.CodeInvestmentInvalidAmount,
			"amount must be positive with at most "+strconv.Itoa(int(scale))+" decimal places, got "+amount.String(),
			map[string]string{"Scale": strconv.Itoa(int(scale))})
	}
	return nil
}
