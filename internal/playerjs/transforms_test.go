package playerjs

import (
	"os"
	"path/filepath"
	"testing"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	p := filepath.Join("testdata", name)
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", p, err)
	}
	return b
}

func TestDecodeSignature(t *testing.T) {
	tests := []struct {
		name     string
		fixture  string
		input    string
		expected string
	}{
		{name: "reverse", fixture: "player_a.js", input: "abc", expected: "cba"},
		{name: "swap splice reverse", fixture: "player_b.js", input: "abcdef", expected: "fedc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := Compile(loadFixture(t, tt.fixture))
			if !tr.SignatureSupported() {
				t.Fatalf("signature unit not extracted")
			}
			got, err := tr.DecodeSignature(tt.input)
			if err != nil {
				t.Fatalf("DecodeSignature() error = %v", err)
			}
			if got != tt.expected {
				t.Fatalf("DecodeSignature() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseSignatureOpsActionsObjectLayouts(t *testing.T) {
	// Releases write the actions object both minified on one line and with
	// entries split across lines; both layouts must parse.
	tests := []struct {
		name   string
		script string
	}{
		{
			name: "single line",
			script: `var Qz={aa:function(a){a.reverse()},bb:function(a,b){a.splice(0,b)}};` +
				`var Fh=function(a){a=a.split("");Qz.aa(a,0);return a.join("")};`,
		},
		{
			name: "entry per line",
			script: "var Qz={\naa:function(a){a.reverse()},\nbb:function(a,b){a.splice(0,b)}};\n" +
				`var Fh=function(a){a=a.split("");Qz.aa(a,0);return a.join("")};`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := parseSignatureOps([]byte(tt.script))
			if err != nil {
				t.Fatalf("parseSignatureOps() error = %v", err)
			}
			if len(ops) != 1 {
				t.Fatalf("parseSignatureOps() ops = %d, want 1", len(ops))
			}
			if got := string(ops[0]([]byte("abc"))); got != "cba" {
				t.Errorf("op result = %q, want %q", got, "cba")
			}
		})
	}
}

func TestDecodeSignatureIdempotentAcrossCalls(t *testing.T) {
	tr := Compile(loadFixture(t, "player_a.js"))
	first, err := tr.DecodeSignature("abc")
	if err != nil {
		t.Fatalf("DecodeSignature() error = %v", err)
	}
	second, err := tr.DecodeSignature("abc")
	if err != nil {
		t.Fatalf("DecodeSignature() second call error = %v", err)
	}
	if first != second {
		t.Fatalf("repeated calls diverged: %q vs %q", first, second)
	}
}

func TestTransformN(t *testing.T) {
	tr := Compile(loadFixture(t, "player_a.js"))
	if !tr.NSupported() {
		t.Fatalf("n unit not extracted")
	}
	got, err := tr.TransformN("12345")
	if err != nil {
		t.Fatalf("TransformN() error = %v", err)
	}
	if got != "23451" {
		t.Fatalf("TransformN() = %q, want %q", got, "23451")
	}
	again, err := tr.TransformN("12345")
	if err != nil || again != got {
		t.Fatalf("TransformN() not re-entrant: %q/%v", again, err)
	}
}

func TestCompileMissingNDegrades(t *testing.T) {
	tr := Compile(loadFixture(t, "player_b.js"))
	if !tr.SignatureSupported() {
		t.Fatalf("signature unit should still compile")
	}
	if tr.NSupported() {
		t.Fatalf("fixture has no n-transform; NSupported() should be false")
	}
	if _, err := tr.TransformN("x"); err == nil {
		t.Fatalf("TransformN() should fail when the unit is missing")
	}
}

func TestCompileMissingSignature(t *testing.T) {
	tr := Compile([]byte("var nothing=1;"))
	if tr.SignatureSupported() {
		t.Fatalf("no signature unit should be found")
	}
	if _, err := tr.DecodeSignature("abc"); err == nil {
		t.Fatalf("DecodeSignature() should fail when the unit is missing")
	}
}

func TestSignatureTimestamp(t *testing.T) {
	tr := Compile(loadFixture(t, "player_a.js"))
	if tr.Timestamp != 19834 {
		t.Fatalf("Timestamp = %d, want 19834", tr.Timestamp)
	}
}
