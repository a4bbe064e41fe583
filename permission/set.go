package permission

import "github.com/MrEthical07/campusAuth/account"

// Flatten returns the distinct permissions granted by roles, in first-seen
// order. Empty names are skipped. The result is never nil.
func Flatten(roles []account.Role) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range roles {
		for _, p := range r.Permissions {
			if p == "" {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// Has reports whether granted contains want.
func Has(granted []string, want string) bool {
	for _, p := range granted {
		if p == want {
			return true
		}
	}
	return false
}

// HasAll reports whether granted contains every name in want. An empty want
// is satisfied.
func HasAll(granted []string, want ...string) bool {
	if len(want) == 0 {
		return true
	}
	set := toSet(granted)
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}

// HasAny reports whether granted contains at least one name in want.
func HasAny(granted []string, want ...string) bool {
	set := toSet(granted)
	for _, w := range want {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
