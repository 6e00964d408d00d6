package utils

import (
	"strconv"
	"time"
)

// WorkshopsListVersionKey namespaces every cached listing page. Deleting it
// orphans all existing pages at once, which is how approval transitions
// invalidate the listing without enumerating its parameterized keys.
const WorkshopsListVersionKey = "workshops:list:ver"

// BuildWorkshopsListCacheKey canonicalizes the listing filter so equivalent
// requests share a cache entry. ver comes from the version key above.
func BuildWorkshopsListCacheKey(ver string, limit, offset int, communityID, shopID *string, from, to *time.Time) string {
	c := ""
	if communityID != nil {
		c = *communityID
	}
	s := ""
	if shopID != nil {
		s = *shopID
	}
	f := ""
	if from != nil {
		f = from.UTC().Format(time.RFC3339Nano)
	}
	t := ""
	if to != nil {
		t = to.UTC().Format(time.RFC3339Nano)
	}

	return "workshops:list:v" + ver +
		":limit=" + strconv.Itoa(limit) +
		":offset=" + strconv.Itoa(offset) +
		":community=" + c +
		":shop=" + s +
		":from=" + f +
		":to=" + t
}
