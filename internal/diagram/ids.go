package diagram

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"erdsql/internal/introspect"
)

var unsafeIdentChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// edgeNamespace seeds the name-based UUIDs used for edge ids.
var edgeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("erdsql.diagram.edge"))

// Sanitize renders v with fmt.Sprint and replaces every character outside
// [A-Za-z0-9_] with an underscore, so nil becomes "_nil_".
func Sanitize(v interface{}) string {
	return unsafeIdentChars.ReplaceAllString(fmt.Sprint(v), "_")
}

// EdgeID derives an id from the key's endpoints, so it does not move
// when unrelated keys are added or removed.
func EdgeID(fk introspect.ForeignKey) string {
	key := fmt.Sprintf("%s:%s:%s:%s", fk.FromTable, fk.FromColumn, fk.ToTable, fk.ToColumn)
	return "edge-" + uuid.NewSHA1(edgeNamespace, []byte(key)).String()
}

// EdgeIDs returns one id per key. Keys with identical endpoints get -2,
// -3, ... suffixes in list order.
func EdgeIDs(fks []introspect.ForeignKey) []string {
	ids := make([]string, len(fks))
	seen := map[string]int{}
	for i, fk := range fks {
		id := EdgeID(fk)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s-%d", id, n)
		}
		ids[i] = id
	}
	return ids
}
