package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"github.com/ogain/oggain/cmd/internal/testing/testcmds"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"oggcomment": func() int { main(); return 0 },
		"mk-opus":    func() int { testcmds.MkOpus(); return 0 },
		"gains":      func() int { testcmds.Gains(); return 0 },
	}))
}

func TestScripts(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir:                 "testdata/scripts",
		RequireExplicitExec: true,
	})
}
