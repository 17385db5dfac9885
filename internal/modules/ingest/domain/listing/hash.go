package listing

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// FileHash fingerprints one observation of a Drive file. The same file id
// with the same modified time always yields the same hash; a touched file
// yields a new one, which is what restarts the processing cycle.
func FileHash(fileID, modifiedTime string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s", fileID, modifiedTime)))
	return hex.EncodeToString(sum[:])
}

// RowKey digests the natural business key of a listing. Rows sharing the key
// are the same business entity; the unique index on row_key absorbs them.
func RowKey(r *RawListing) string {
	key := strings.ToLower(strings.Join([]string{
		strings.TrimSpace(r.Name),
		strings.TrimSpace(r.Address),
		strings.TrimSpace(r.City),
		strings.TrimSpace(r.State),
		strings.TrimSpace(r.Category),
	}, "|"))
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
