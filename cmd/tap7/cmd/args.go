package cmd

import "strings"

// legacyFlags are long options historically written with a single dash.
var legacyFlags = map[string]string{
	"-rdyc":    "--rdyc",
	"-dlyc":    "--dlyc",
	"-sfmt":    "--sfmt",
	"-freq":    "--freq",
	"-device":  "--device",
	"-config":  "--config",
	"-bsdl":    "--bsdl",
	"-verbose": "--verbose",
	"-help":    "--help",
	"-?":       "--help",
}

// normalizeArgs rewrites single-dash long options, with or without an
// "=value" suffix, into the double-dash form. Arguments after "--" are left
// alone.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i, arg := range args {
		if arg == "--" {
			return append(out, args[i:]...)
		}
		name, value, hasValue := strings.Cut(arg, "=")
		if long, ok := legacyFlags[name]; ok {
			if hasValue {
				long += "=" + value
			}
			arg = long
		}
		out = append(out, arg)
	}
	return out
}
