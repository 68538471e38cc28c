package app

import "fmt"

// review pages are cached only for these limits so writes know what to evict
var cachedReviewLimits = []int{50, 100, 200}

func isCachedReviewLimit(limit int) bool {
	for _, l := range cachedReviewLimits {
		if l == limit {
			return true
		}
	}
	return false
}

func reserveKey(id string) string { return "reserve:" + id }

func regionsKey() string { return "regions" }

func reviewsKey(reserveID string, limit int) string {
	return fmt.Sprintf("reviews:%s:%d:-created_at", reserveID, limit)
}
