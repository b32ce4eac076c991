package presale

import (
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParseReferral extracts the referral address from a deep-link fragment of
// the form "#BuyNow?ref=<address>". Parsed once at load; anything that is
// not a well-formed 20-byte hex address is silently dropped.
func ParseReferral(fragment string) (common.Address, bool) {
	fragment = strings.TrimPrefix(fragment, "#")
	idx := strings.Index(fragment, "?")
	if idx < 0 {
		return common.Address{}, false
	}
	values, err := url.ParseQuery(fragment[idx+1:])
	if err != nil {
		return common.Address{}, false
	}
	ref := values.Get("ref")
	if !common.IsHexAddress(ref) {
		return common.Address{}, false
	}
	return common.HexToAddress(ref), true
}
