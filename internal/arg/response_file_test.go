package arg

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandResponseFilesNoAt(t *testing.T) {
	in := []string{"/c", "/O2", "main.cpp"}
	got, err := ExpandResponseFiles(in)
	if err != nil {
		t.Fatalf("ExpandResponseFiles: %v", err)
	}
	if !equalTokens(got, in) {
		t.Errorf("got %q, want %q unchanged", got, in)
	}
}

func TestExpandResponseFilesBasic(t *testing.T) {
	dir := t.TempDir()
	rsp := filepath.Join(dir, "args.rsp")
	if err := os.WriteFile(rsp, []byte("/O2 /EHsc \"/D FOO=1\"\n/Iinclude"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ExpandResponseFiles([]string{"/c", "@" + rsp, "main.cpp"})
	if err != nil {
		t.Fatalf("ExpandResponseFiles: %v", err)
	}
	want := []string{"/c", "/O2", "/EHsc", "/D FOO=1", "/Iinclude", "main.cpp"}
	if !equalTokens(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandResponseFilesNested(t *testing.T) {
	dir := t.TempDir()
	inner := filepath.Join(dir, "inner.rsp")
	outer := filepath.Join(dir, "outer.rsp")
	if err := os.WriteFile(inner, []byte("/O2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(outer, []byte("/EHsc @"+inner), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ExpandResponseFiles([]string{"@" + outer, "main.cpp"})
	if err != nil {
		t.Fatalf("ExpandResponseFiles: %v", err)
	}
	want := []string{"/EHsc", "/O2", "main.cpp"}
	if !equalTokens(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandResponseFilesMissingFile(t *testing.T) {
	_, err := ExpandResponseFiles([]string{"@/no/such/file.rsp"})
	if err == nil {
		t.Fatalf("expected error for missing response file")
	}
}

func TestTokenizeShellStyleQuoting(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`foo bar`, []string{"foo", "bar"}},
		{`'foo bar'`, []string{"foo bar"}},
		{`"foo \"bar\""`, []string{`foo "bar"`}},
		{`foo\ bar`, []string{"foo bar"}},
		{"foo\tbar\nbaz", []string{"foo", "bar", "baz"}},
	}
	for _, tc := range cases {
		got, err := tokenizeShellStyle(tc.in)
		if err != nil {
			t.Fatalf("tokenizeShellStyle(%q): %v", tc.in, err)
		}
		if !equalTokens(got, tc.want) {
			t.Errorf("tokenizeShellStyle(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokenizeShellStyleUnterminatedQuote(t *testing.T) {
	if _, err := tokenizeShellStyle(`"unterminated`); err == nil {
		t.Fatalf("expected error for unterminated quote")
	}
}
