package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	var got []string
	SetLogger(func(format string, v ...interface{}) {
		got = append(got, fmt.Sprintf(format, v...))
	})
	t.Cleanup(func() { SetLogger(nil) })

	Logf("nodes=%d", 12)
	if len(got) != 1 || got[0] != "nodes=12" {
		t.Fatalf("got %q, want [\"nodes=12\"]", got)
	}

	SetLogger(nil)
	Logf("muted")
	if len(got) != 1 {
		t.Errorf("muted logger still recorded: %q", got)
	}
}
