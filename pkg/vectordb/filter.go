package vectordb

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var filterKey = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// whereClause builds "collection = ? AND json_extract(...) = ? ..." for an
// equality filter over metadata. Keys are emitted in sorted order.
func whereClause(collection string, filter map[string]string) (string, []any, error) {
	conds := []string{"collection = ?"}
	args := []any{collection}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !filterKey.MatchString(k) {
			return "", nil, fmt.Errorf("%w: key %q", ErrInvalidFilter, k)
		}
		conds = append(conds, fmt.Sprintf("json_extract(metadata, '$.%s') = ?", k))
		args = append(args, filter[k])
	}
	return strings.Join(conds, " AND "), args, nil
}
