package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsAddress reports whether s is a 20-byte hex account address. The 0x prefix
// is optional; when present it must be lowercase. Mixed-case input must carry
// a valid EIP-55 checksum, single-case input is accepted as-is.
func IsAddress(s string) bool {
	if strings.HasPrefix(s, "0X") || !common.IsHexAddress(s) {
		return false
	}
	digits := strings.TrimPrefix(s, "0x")
	if digits == strings.ToLower(digits) || digits == strings.ToUpper(digits) {
		return true
	}
	return common.HexToAddress(s).Hex()[2:] == digits
}

// ShortAddress renders a as 0x1234…abcd for status lines.
func ShortAddress(a common.Address) string {
	h := a.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}
