package function

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var ErrFieldCount = fmt.Errorf("illegal field count")

// Fields splits raw into len(names) fields, the last field keeps the remainder
func Fields(raw string, separator string, names []string) (map[string]interface{}, error) {
	if len(names) == 0 {
		return map[string]interface{}{}, nil
	}
	splitN := strings.SplitN(strings.TrimSpace(raw), separator, len(names))
	if len(splitN) != len(names) {
		return nil, errors.WithMessagef(ErrFieldCount, "want %d, got %d", len(names), len(splitN))
	}
	fields := make(map[string]interface{}, len(names))
	for i, name := range names {
		fields[name] = splitN[i]
	}
	return fields, nil
}

// KeyValues parses "k1=v1 k2=v2" like strings, pairs without kvSeparator are skipped
func KeyValues(raw string, pairSeparator string, kvSeparator string) map[string]interface{} {
	values := map[string]interface{}{}
	for _, pair := range strings.Split(strings.TrimSpace(raw), pairSeparator) {
		key, value, ok := strings.Cut(pair, kvSeparator)
		if !ok || key == "" {
			continue
		}
		values[key] = value
	}
	return values
}
