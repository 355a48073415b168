package cache

import (
	"strconv"
	"strings"
)

const keySeparator = "-"

var keyEscaper = strings.NewReplacer(`\`, `\\`, keySeparator, `\`+keySeparator)

// DeriveKey joins the extractor key, item id and scan start with "-".
// Separators and backslashes inside fields are backslash-escaped, so distinct
// triples never share a key while plain fields keep the "e-i-s" form.
func DeriveKey(extractorKey, itemID string, scanStart int) string {
	return keyEscaper.Replace(extractorKey) +
		keySeparator +
		keyEscaper.Replace(itemID) +
		keySeparator +
		strconv.Itoa(scanStart)
}
