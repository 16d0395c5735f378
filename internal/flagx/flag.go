// Package flagx contains helpers for the two-pass configuration loading used
// by both binaries: the config file path is read first, the remaining flags
// are parsed after the JSON file has been applied.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// ConfigFlags are the names accepted for the JSON config path.
var ConfigFlags = []string{"-c", "-config"}

// FilterArgs keeps only the flags named in allowed, together with their
// values. Both "-c file" and "-c=file" forms are recognised. A token starting
// with '-' is never taken as a value.
func FilterArgs(args []string, allowed []string) []string {
	names := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		names[f] = struct{}{}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, ok := strings.Cut(arg, "="); ok && strings.HasPrefix(arg, "-") {
			if _, keep := names[name]; keep {
				out = append(out, arg)
			}
			continue
		}

		if _, keep := names[arg]; !keep {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigPath extracts the value of -c / -config from args, ignoring every
// other flag. It returns "" when neither is present.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(FilterArgs(args, ConfigFlags))

	return path
}

// StripArgs removes the config flags from args so that a FlagSet that does not
// declare them can parse the rest.
func StripArgs(args []string) []string {
	drop := FilterArgs(args, ConfigFlags)
	if len(drop) == 0 {
		return args
	}
	out := make([]string, 0, len(args))
	j := 0
	for _, a := range args {
		if j < len(drop) && a == drop[j] {
			j++
			continue
		}
		out = append(out, a)
	}
	return out
}
