package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"nodetel": func() { os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr)) },
	})
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			env.Setenv("XDG_CONFIG_HOME", filepath.Join(env.WorkDir, ".config"))
			env.Setenv("XDG_DATA_HOME", filepath.Join(env.WorkDir, ".data"))
			env.Setenv("NODETEL_STORE_BACKEND", "file")
			env.Setenv("NODETEL_HARDWARE_SNAPSHOT_FILE", filepath.Join(env.WorkDir, "snapshot.toml"))
			env.Setenv("NODETEL_NETWORK_LOOKUP_URL", "off")
			env.Setenv("NODETEL_LOG_LEVEL", "warn")
			return nil
		},
	})
}
