package domain

// Migrate upgrades a merged document from an older schema version to the
// current one. It is idempotent: running it on an already-current document
// returns the input unchanged, and fields a migration does not touch are
// preserved as-is.
//
// Known transform, v1 -> v2: the single flat billMessage string becomes the
// firstNotice template message; followUp and finalNotice keep whatever the
// merge pulled from defaults; the flat field is removed.
func Migrate(stored, merged map[string]any) map[string]any {
	version := documentVersion(merged)
	if version >= CurrentVersion {
		return merged
	}

	out := deepCopy(merged)
	if version <= 1 {
		migrateV1toV2(stored, out)
	}
	out["version"] = CurrentVersion
	return out
}

func migrateV1toV2(stored, doc map[string]any) {
	legacy, _ := doc["billMessage"].(string)
	if legacy == "" && stored != nil {
		legacy, _ = stored["billMessage"].(string)
	}

	if legacy != "" {
		templates, ok := doc["templates"].(map[string]any)
		if !ok {
			templates = map[string]any{}
			doc["templates"] = templates
		}
		firstNotice, ok := templates["firstNotice"].(map[string]any)
		if !ok {
			firstNotice = map[string]any{"name": "First Notice"}
			templates["firstNotice"] = firstNotice
		}
		firstNotice["message"] = legacy
	}

	delete(doc, "billMessage")
}

func documentVersion(doc map[string]any) int {
	switch v := doc["version"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
