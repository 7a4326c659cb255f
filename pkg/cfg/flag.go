package cfg

import (
	"flag"
	"strings"

	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
)

// Defaults registers the flags of dst on fs, which sets every field to its
// flag default.
func Defaults(fs *flag.FlagSet) Source {
	return func(dst interface{}) error {
		r, ok := dst.(flagext.Registerer)
		if !ok {
			return errors.New("dst does not satisfy flagext.Registerer")
		}
		r.RegisterFlags(fs)
		return nil
	}
}

// Flags parses args with fs. Only the flags present in args change dst, so
// values loaded by earlier sources survive. The flags must already be
// registered, see Defaults.
func Flags(fs *flag.FlagSet, args []string) Source {
	return func(interface{}) error {
		return fs.Parse(args)
	}
}

// flagValue returns the value of the flag name in args without parsing the
// other flags.
func flagValue(args []string, name string) (string, bool) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return "", false
		}
		if !strings.HasPrefix(arg, "-") {
			continue
		}
		arg = strings.TrimLeft(arg, "-")
		if arg == name && i+1 < len(args) {
			return args[i+1], true
		}
		if v, ok := strings.CutPrefix(arg, name+"="); ok {
			return v, true
		}
	}
	return "", false
}
