package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestPrintDoctorResult(t *testing.T) {
	var buf bytes.Buffer
	printDoctorResult(&buf, &doctorResult{
		Status: "warnings",
		Chrome: chromeInfo{Found: true, Path: "/usr/bin/chromium"},
		Env:    envInfo{OS: "linux", Arch: "amd64", Container: true},
		System: systemInfo{TempWritable: true},
		Warnings: []string{
			"running in a container/CI without ROD_NO_SANDBOX=1; Chrome may fail to start",
		},
	})

	out := buf.String()
	for _, want := range []string{
		"Status: warnings",
		"Chrome: /usr/bin/chromium",
		"linux/amd64 (container)",
		"Temp writable: true",
		"warning: running in a container",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in report:\n%s", want, out)
		}
	}
}

func TestPrintDoctorResult_NoChrome(t *testing.T) {
	var buf bytes.Buffer
	printDoctorResult(&buf, &doctorResult{Status: "ready"})
	if !strings.Contains(buf.String(), "Chrome: not found") {
		t.Errorf("expected missing-Chrome line, got:\n%s", buf.String())
	}
}

func TestDoctorResult_JSONShape(t *testing.T) {
	r := &doctorResult{
		Status: "ready",
		Chrome: chromeInfo{Found: true, Path: "/usr/bin/chromium"},
		Env:    envInfo{OS: "linux", Arch: "amd64"},
		System: systemInfo{TempWritable: true},
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"status", "chrome", "environment", "system"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("expected key %q in JSON output", key)
		}
	}
	if _, ok := decoded["warnings"]; ok {
		t.Error("empty warnings should be omitted from JSON")
	}
}
