package version

import (
	"strings"
	"testing"
)

func TestInfo_Defaults(t *testing.T) {
	bi := Info()
	if bi.Service != "visionkit" || bi.Version == "" || bi.Commit == "" || bi.Date == "" {
		t.Fatalf("info = %+v", bi)
	}
	if !strings.HasPrefix(bi.Go, "go") || bi.WireVersion != WireVersion {
		t.Fatalf("runtime fields = %+v", bi)
	}
}
