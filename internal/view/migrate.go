package view

// Migrate reconciles a persisted order and visible list with the current
// default key set.
//
// Unknown keys are dropped and duplicates collapse to their first position.
// Default keys missing from the persisted order are appended in default
// order; those that are visible by default also become visible, so newly
// added columns show up. Keys the user has hidden stay hidden. A nil order
// means nothing was persisted and yields the defaults; a nil visible list
// with a persisted order falls back to the default visibility.
func Migrate(order, visible, defaults, defaultVisible []string) ([]string, []string) {
	known := make(map[string]bool, len(defaults))
	for _, k := range defaults {
		known[k] = true
	}
	visibleByDefault := make(map[string]bool, len(defaultVisible))
	for _, k := range defaultVisible {
		if known[k] {
			visibleByDefault[k] = true
		}
	}

	if order == nil {
		return append([]string(nil), defaults...), orderedSubset(defaults, visibleByDefault)
	}

	seen := make(map[string]bool, len(defaults))
	outOrder := make([]string, 0, len(defaults))
	for _, k := range order {
		if known[k] && !seen[k] {
			seen[k] = true
			outOrder = append(outOrder, k)
		}
	}

	vis := make(map[string]bool, len(defaults))
	if visible == nil {
		for k := range visibleByDefault {
			vis[k] = true
		}
	} else {
		for _, k := range visible {
			if known[k] {
				vis[k] = true
			}
		}
	}

	for _, k := range defaults {
		if seen[k] {
			continue
		}
		outOrder = append(outOrder, k)
		if visibleByDefault[k] {
			vis[k] = true
		}
	}

	return outOrder, orderedSubset(outOrder, vis)
}

func orderedSubset(order []string, set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for _, k := range order {
		if set[k] {
			out = append(out, k)
		}
	}
	return out
}
