package retrieve

import "strings"

// parseVariants pulls paraphrases out of an LLM numbered-list reply. Lines
// may be numbered ("1. ..." or "1) ...") or bulleted ("- ...", "* ...");
// anything else is ignored. The original query and duplicates are dropped
// and at most max variants are returned.
func parseVariants(reply, original string, max int) []string {
	seen := map[string]struct{}{original: {}}
	variants := make([]string, 0, max)

	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var variant string
		switch {
		case line[0] >= '0' && line[0] <= '9':
			variant = stripListMarker(line)
		case line[0] == '-' || line[0] == '*':
			variant = strings.TrimSpace(line[1:])
		default:
			continue
		}

		if variant == "" {
			continue
		}
		if _, dup := seen[variant]; dup {
			continue
		}
		seen[variant] = struct{}{}
		variants = append(variants, variant)
		if len(variants) >= max {
			break
		}
	}

	return variants
}

// stripListMarker removes a leading "1." or "1)" style marker.
func stripListMarker(line string) string {
	if _, rest, ok := strings.Cut(line, "."); ok {
		return strings.TrimSpace(rest)
	}
	if _, rest, ok := strings.Cut(line, ")"); ok {
		return strings.TrimSpace(rest)
	}
	return ""
}
