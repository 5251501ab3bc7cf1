package backend

import "strings"

// FilterUserArgs drops user-supplied arguments that try to override the
// fixed safety flags. User arguments can extend behavior but never weaken
// the safety posture: a match is case-insensitive, exact or flag=value,
// and a bare "--" terminator is rejected outright since everything after
// it would escape flag parsing.
func FilterUserArgs(userArgs, safetyFlags []string) []string {
	protected := make(map[string]bool, len(safetyFlags))
	for _, flag := range safetyFlags {
		if strings.HasPrefix(flag, "-") {
			protected[strings.ToLower(flag)] = true
		}
	}

	var kept []string
	for _, arg := range userArgs {
		if arg == "--" {
			continue
		}
		lower := strings.ToLower(arg)
		if protected[lower] {
			continue
		}
		if name, _, found := strings.Cut(lower, "="); found && protected[name] {
			continue
		}
		kept = append(kept, arg)
	}
	return kept
}
