package cfg

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// YAML loads the YAML file at path. Unknown fields are an error.
func YAML(path string) Source {
	return func(dst interface{}) error {
		buf, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "Error reading config file")
		}
		return dYAML(buf)(dst)
	}
}

// dYAML returns a YAML source and allows dependency injection
func dYAML(y []byte) Source {
	return func(dst interface{}) error {
		return yaml.UnmarshalStrict(y, dst)
	}
}

// YAMLFlag loads the YAML file named by the flag name in args, if it is set.
func YAMLFlag(args []string, name string) Source {
	return func(dst interface{}) error {
		path, ok := flagValue(args, name)
		if !ok || path == "" {
			return nil
		}
		return YAML(path)(dst)
	}
}
