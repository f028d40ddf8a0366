package mime

import "testing"

func TestTypeByExtension(t *testing.T) {
	tests := map[string]string{
		"index.html": "text/html",
		"a.txt":      "text/plain",
		"data.JSON":  "application/json",
		"noext":      defaultType,
		"x.weird":    defaultType,
	}
	for name, want := range tests {
		if got := TypeByExtension(name); got != want {
			t.Errorf("TypeByExtension(%q) = %q, want %q", name, got, want)
		}
	}
}
