package freelink

// Resolve selects the handler for an indicator.
//
// Built-in indicators short-circuit. Otherwise every entry in the set is
// tested in order and the last match wins. When nothing matches, the default
// handler is used if one is configured, enabled, and IgnoreUnresolved is off.
func Resolve(indicator string, set EnabledSet, opts Options) (Entry, bool) {
	if IsBuiltin(indicator) {
		return Entry{Handler: Builtin(), Settings: Settings{}}, true
	}

	var current Entry
	found := false
	for _, e := range set {
		if e.Handler.Indicator().Match(indicator, opts.MatchMode) {
			current, found = e, true
		}
	}
	if found {
		return current, true
	}

	if opts.IgnoreUnresolved || opts.DefaultHandler == "" || opts.DefaultHandler == NoDefault {
		return Entry{}, false
	}
	return set.Lookup(opts.DefaultHandler)
}
