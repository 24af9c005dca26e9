package mayaboot

import "testing"

func TestParseVersion(t *testing.T) {
	cases := []struct {
		in    string
		major int
		minor int
		patch int
	}{
		{"3.10.5", 3, 10, 5},
		{"3.10", 3, 10, -1},
		{"2", 2, -1, -1},
		{"2.7.18+", 2, 7, 18},
	}
	for _, c := range cases {
		v, err := ParseVersion(c.in)
		if err != nil {
			t.Fatalf("ParseVersion(%q) failed: %v", c.in, err)
		}
		if v.Major != c.major || v.Minor != c.minor || v.Patch != c.patch {
			t.Errorf("ParseVersion(%q) = %+v, want {%d %d %d}", c.in, v, c.major, c.minor, c.patch)
		}
	}

	if _, err := ParseVersion("not-a-version"); err == nil {
		t.Error("Expected error for non-numeric version string")
	}
}

func TestParsePythonVersion(t *testing.T) {
	v, err := ParsePythonVersion("Python 3.10.5")
	if err != nil {
		t.Fatalf("Failed to parse version: %v", err)
	}
	if v.Major != 3 || v.Minor != 10 || v.Patch != 5 {
		t.Errorf("Expected {3 10 5}, got %+v", v)
	}

	// Python 2 reports its version with trailing whitespace via stderr.
	v, err = ParsePythonVersion("Python 2.7.18\n")
	if err != nil {
		t.Fatalf("Failed to parse version: %v", err)
	}
	if v.Major != 2 {
		t.Errorf("Expected major 2, got %d", v.Major)
	}

	if _, err := ParsePythonVersion("pip 23.0 from /usr/lib"); err == nil {
		t.Error("Expected error for non-Python version string")
	}
	if _, err := ParsePythonVersion("Python"); err == nil {
		t.Error("Expected error for missing version component")
	}
}

func TestVersionCompare(t *testing.T) {
	v3 := Version{Major: 3, Minor: 10, Patch: 5}
	v2 := Version{Major: 2, Minor: 7, Patch: 18}

	if v3.Compare(v2) != 1 {
		t.Error("Expected 3.10.5 > 2.7.18")
	}
	if v2.Compare(v3) != -1 {
		t.Error("Expected 2.7.18 < 3.10.5")
	}
	if v3.Compare(v3) != 0 {
		t.Error("Expected 3.10.5 == 3.10.5")
	}

	a := Version{Major: 3, Minor: 9, Patch: -1}
	b := Version{Major: 3, Minor: 10, Patch: -1}
	if a.Compare(b) != -1 {
		t.Error("Expected 3.9 < 3.10")
	}
}

func TestVersionString(t *testing.T) {
	full := Version{Major: 3, Minor: 10, Patch: 5}
	if full.String() != "3.10.5" {
		t.Errorf("Expected '3.10.5', got '%s'", full.String())
	}
	if full.MinorString() != "3.10" {
		t.Errorf("Expected '3.10', got '%s'", full.MinorString())
	}

	short := Version{Major: 3, Minor: -1, Patch: -1}
	if short.String() != "3" {
		t.Errorf("Expected '3', got '%s'", short.String())
	}
}
