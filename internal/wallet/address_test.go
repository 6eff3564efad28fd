package wallet

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestIsAddress(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", true},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED", true},
		{"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD", false}, // bad checksum
		{"0X5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", false},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beae", false},
		{"not-an-address", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsAddress(tc.in); got != tc.want {
			t.Errorf("IsAddress(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestShortAddress(t *testing.T) {
	a := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	if got := ShortAddress(a); got != "0x5aAe…eAed" {
		t.Fatalf("ShortAddress = %q", got)
	}
}
