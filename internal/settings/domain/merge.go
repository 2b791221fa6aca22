package domain

import "go.uber.org/zap"

// Keys that reach a JavaScript object's prototype chain. Documents written by
// the legacy spreadsheet add-on pass through browser code, so these are
// skipped at every depth regardless of value.
var unsafeKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// Merge deep-merges a stored (possibly partial or legacy) document over the
// defaults. Stored values win per key, maps recurse, arrays are replaced
// wholesale. A non-object stored document yields the defaults verbatim.
func Merge(defaults, stored map[string]any, log *zap.Logger) map[string]any {
	out := deepCopy(defaults)
	if stored == nil {
		return out
	}
	mergeInto(out, stored, "", log)
	return out
}

func mergeInto(dst, src map[string]any, path string, log *zap.Logger) {
	for key, value := range src {
		if _, unsafe := unsafeKeys[key]; unsafe {
			if log != nil {
				log.Warn("skipping unsafe key in stored settings",
					zap.String("key", key),
					zap.String("path", path),
				)
			}
			continue
		}

		srcMap, srcIsMap := value.(map[string]any)
		dstMap, dstIsMap := dst[key].(map[string]any)
		if srcIsMap && dstIsMap {
			mergeInto(dstMap, srcMap, path+key+".", log)
			continue
		}
		if srcIsMap {
			fresh := make(map[string]any, len(srcMap))
			mergeInto(fresh, srcMap, path+key+".", log)
			dst[key] = fresh
			continue
		}
		dst[key] = value
	}
}

func deepCopy(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for key, value := range src {
		if nested, ok := value.(map[string]any); ok {
			out[key] = deepCopy(nested)
			continue
		}
		if list, ok := value.([]any); ok {
			copied := make([]any, len(list))
			copy(copied, list)
			out[key] = copied
			continue
		}
		out[key] = value
	}
	return out
}
