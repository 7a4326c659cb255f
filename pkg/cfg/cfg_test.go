package cfg

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Data struct {
	Verbose    bool   `yaml:"verbose"`
	Server     Server `yaml:"server"`
	TLS        TLS    `yaml:"tls"`
	ConfigFile string `yaml:"-"`
}

type Server struct {
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

type TLS struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

func (d *Data) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&d.Verbose, "verbose", false, "")
	fs.IntVar(&d.Server.Port, "server.port", 80, "")
	fs.DurationVar(&d.Server.Timeout, "server.timeout", 60*time.Second, "")
	fs.StringVar(&d.TLS.Cert, "tls.cert", "CERT", "")
	fs.StringVar(&d.TLS.Key, "tls.key", "KEY", "")
	fs.StringVar(&d.ConfigFile, "config.file", "", "")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParse(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 2000
  timeout: 60h
tls:
  key: YAML
`)

	var c Data
	err := Parse(&c, flag.NewFlagSet("test", flag.ContinueOnError), []string{"-verbose", "-server.port=21", "-config.file", path})
	require.NoError(t, err)

	require.Equal(t, Data{
		Verbose: true,
		Server: Server{
			Port:    21,
			Timeout: 60 * time.Hour,
		},
		TLS: TLS{
			Cert: "CERT",
			Key:  "YAML",
		},
		ConfigFile: path,
	}, c)
}

func TestDefaults(t *testing.T) {
	var d Data
	err := Parse(&d, flag.NewFlagSet("test", flag.ContinueOnError), nil)
	require.NoError(t, err)
	assert.Equal(t, Data{
		Verbose: false,
		Server: Server{
			Port:    80,
			Timeout: 60 * time.Second,
		},
		TLS: TLS{
			Cert: "CERT",
			Key:  "KEY",
		},
	}, d)
}

func TestYAMLStrict(t *testing.T) {
	path := writeConfig(t, "server:\n  prot: 1\n")

	var d Data
	err := Parse(&d, flag.NewFlagSet("test", flag.ContinueOnError), []string{"-config.file=" + path})
	require.Error(t, err)
}

func TestMissingConfigFile(t *testing.T) {
	var d Data
	err := Parse(&d, flag.NewFlagSet("test", flag.ContinueOnError), []string{"--config.file=/does/not/exist.yaml"})
	require.Error(t, err)
}

func TestFlagValue(t *testing.T) {
	for _, tc := range []struct {
		args  []string
		value string
		found bool
	}{
		{[]string{"-config.file=a.yaml"}, "a.yaml", true},
		{[]string{"--config.file", "b.yaml"}, "b.yaml", true},
		{[]string{"-verbose", "-config.file", "c.yaml", "-server.port=1"}, "c.yaml", true},
		{[]string{"-config.file"}, "", false},
		{[]string{"--", "-config.file=d.yaml"}, "", false},
		{[]string{"-config.files=e.yaml"}, "", false},
	} {
		value, found := flagValue(tc.args, "config.file")
		assert.Equal(t, tc.found, found, "%v", tc.args)
		assert.Equal(t, tc.value, value, "%v", tc.args)
	}
}
