package transfer

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jask/ethsend/internal/database/repository"
)

// EtherDecimals is the number of wei digits in one ether.
const EtherDecimals = 18

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrZeroAmount    = errors.New("amount must be greater than zero")
)

var amountPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// ParseEther converts a decimal ether amount such as "0.05" to wei.
// Signs, exponents and more than 18 fractional digits are rejected.
func ParseEther(s string) (*big.Int, error) {
	if !amountPattern.MatchString(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > EtherDecimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, EtherDecimals)
	}
	d, err := decimal.NewFromString("0" + strings.TrimSuffix(s, "."))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	wei := d.Shift(EtherDecimals).BigInt()
	if wei.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	return wei, nil
}

// FormatEther renders wei as a decimal ether string without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals).String()
}

// JournalAmount renders the amount of a journaled transfer in ether,
// normalised from its wei value when one was recorded.
func JournalAmount(t repository.Transfer) string {
	wei, ok := new(big.Int).SetString(t.AmountWei, 10)
	if !ok {
		return t.Amount
	}
	return FormatEther(wei)
}
