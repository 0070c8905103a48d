package chat

import (
	"fmt"
	"strconv"
)

// generalScope labels the listing-less conversation between two users.
const generalScope = "general"

// ConversationKey derives the deterministic identifier of a two-party thread,
// optionally scoped to a listing. Symmetric in its participant arguments:
// ConversationKey(a, b, l) == ConversationKey(b, a, l).
func ConversationKey(userA, userB int64, listingID *int64) string {
	lo, hi := userA, userB
	if lo > hi {
		lo, hi = hi, lo
	}
	scope := generalScope
	if listingID != nil {
		scope = strconv.FormatInt(*listingID, 10)
	}
	return fmt.Sprintf("%d-%d:%s", lo, hi, scope)
}
