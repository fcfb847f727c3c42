package logsetup

import (
	"bytes"
	"strings"
	"testing"

	"github.com/op/go-logging"
)

func TestSetupFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup(&buf, "info", false); err != nil {
		t.Fatal(err)
	}
	log := logging.MustGetLogger("setup")
	log.Debugf("hidden %d", 1)
	log.Infof("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record written at info level: %q", out)
	}
	if !strings.Contains(out, "INFO setup: shown 2") {
		t.Fatalf("info record missing: %q", out)
	}
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	if err := Setup(&bytes.Buffer{}, "chatty", false); err == nil {
		t.Fatal("Setup accepted an unknown level")
	}
}
