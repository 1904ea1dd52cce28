package runtime

import (
	"os"
	"testing"
)

// chdirTest changes the working directory to dir for the duration of the
// test and restores it on cleanup, mirroring testing.T.Chdir (Go 1.24+).
func chdirTest(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
