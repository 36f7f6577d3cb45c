package service

import (
	"sort"
	"strconv"
	"strings"

	"github.com/simhastha_samwad/backend/internal/utils"
)

// PickAssignee chooses one name from a category's pool. The choice depends
// only on the ticket id and the pool contents, so the same ticket always
// lands on the same person regardless of the configured order.
func PickAssignee(ticketID int64, pool []string) string {
	candidates := make([]string, 0, len(pool))
	for _, p := range pool {
		if p = strings.TrimSpace(p); p != "" {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	idx := int(utils.HashKey(strconv.FormatInt(ticketID, 10)) % uint64(len(candidates)))
	return candidates[idx]
}
