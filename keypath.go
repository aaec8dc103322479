package manila

import (
	"fmt"
	"strings"
)

// SetKeyPath sets value at the dotted keypath inside root and returns the
// resulting mapping, creating intermediate mappings as it descends. A nil
// root becomes a fresh mapping, any other non-mapping root is folded into
// {fmt.Sprint(root): 1} before descending. An intermediate segment that holds
// a non-mapping value is replaced with an empty mapping, dropping whatever
// was stored there.
func SetKeyPath(root any, keypath string, value any) map[string]any {
	var dic map[string]any
	switch t := root.(type) {
	case nil:
		dic = map[string]any{}
	case map[string]any:
		dic = t
	default:
		dic = map[string]any{fmt.Sprint(root): 1}
	}

	paths := strings.Split(keypath, ".")
	last := paths[len(paths)-1]
	dd := dic
	for _, key := range paths[:len(paths)-1] {
		next, ok := dd[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			dd[key] = next
		}
		dd = next
	}
	dd[last] = value

	return dic
}

// GetKeyPath reads the value at the dotted keypath. The boolean is false when
// a segment is missing or a non-terminal segment is not a mapping.
func GetKeyPath(dic map[string]any, keypath string) (any, bool) {
	paths := strings.Split(keypath, ".")
	last := paths[len(paths)-1]
	dd := dic
	for _, key := range paths[:len(paths)-1] {
		next, ok := dd[key].(map[string]any)
		if !ok {
			return nil, false
		}
		dd = next
	}
	v, ok := dd[last]
	return v, ok
}
