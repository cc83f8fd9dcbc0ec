package checkpoint

import "github.com/prizm-dev/prizm/internal/model"

// ExtractChange maps one completed tool part to a FileChange, per the
// tool-name -> change-entry rule table. It returns ok=false for isError
// parts, unrecognized tool names, or arguments missing the field the rule
// needs.
func ExtractChange(p model.Part) (model.FileChange, bool) {
	if p.IsError {
		return model.FileChange{}, false
	}
	switch p.Name {
	case "prizm_file_write":
		path, ok := stringArg(p.Arguments, "path")
		if !ok {
			return model.FileChange{}, false
		}
		return model.FileChange{Path: path, Action: model.FileCreated}, true

	case "prizm_file_move":
		to, ok1 := stringArg(p.Arguments, "to")
		from, ok2 := stringArg(p.Arguments, "from")
		if !ok1 || !ok2 {
			return model.FileChange{}, false
		}
		return model.FileChange{Path: to, Action: model.FileMoved, FromPath: from}, true

	case "prizm_file_delete":
		path, ok := stringArg(p.Arguments, "path")
		if !ok {
			return model.FileChange{}, false
		}
		return model.FileChange{Path: path, Action: model.FileDeleted}, true

	case "prizm_create_document":
		title, ok := stringArg(p.Arguments, "title")
		if !ok {
			return model.FileChange{}, false
		}
		return model.FileChange{Path: "[doc] " + title, Action: model.FileCreated}, true

	case "prizm_update_document":
		id, ok := stringArg(p.Arguments, "id")
		if !ok {
			return model.FileChange{}, false
		}
		return model.FileChange{Path: "[doc] " + id, Action: model.FileModified}, true

	case "prizm_delete_document":
		id, ok := stringArg(p.Arguments, "id")
		if !ok {
			return model.FileChange{}, false
		}
		return model.FileChange{Path: "[doc] " + id, Action: model.FileDeleted}, true

	default:
		return model.FileChange{}, false
	}
}

func stringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// ExtractChangesFromParts runs ExtractChange over every tool part in order,
// skipping unrecognized/error/malformed ones and collapsing duplicate paths
// to their first occurrence.
func ExtractChangesFromParts(parts []model.Part) []model.FileChange {
	var out []model.FileChange
	seen := make(map[string]bool)
	for _, p := range parts {
		if p.Type != model.PartTool {
			continue
		}
		fc, ok := ExtractChange(p)
		if !ok || seen[fc.Path] {
			continue
		}
		seen[fc.Path] = true
		out = append(out, fc)
	}
	return out
}
