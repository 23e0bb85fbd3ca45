package include

import "testing"

func fakeFS(existing ...string) StatFunc {
	set := make(map[string]bool, len(existing))
	for _, p := range existing {
		set[p] = true
	}
	return func(path string) bool { return set[path] }
}

func TestResolveAbsolute(t *testing.T) {
	r := &Resolver{Policy: PolicyClang, Exists: fakeFS()}
	got, err := r.Resolve(Include{Kind: Bracket, Name: "/usr/include/a.h"}, Context{}, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "/usr/include/a.h" {
		t.Errorf("got %q", got)
	}
}

func TestResolveQuoteSearchesContextThenSystem(t *testing.T) {
	r := &Resolver{Policy: PolicyClang, Exists: fakeFS("/sys/a.h")}
	ctx := Context{dirs: []string{"/proj/src"}}
	got, err := r.Resolve(Include{Kind: Quote, Name: "a.h"}, ctx, SearchList{"/sys"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "/sys/a.h" {
		t.Errorf("got %q, want /sys/a.h", got)
	}
}

func TestResolveBracketSkipsContext(t *testing.T) {
	r := &Resolver{Policy: PolicyClang, Exists: fakeFS("/proj/src/a.h")}
	ctx := Context{dirs: []string{"/proj/src"}}
	_, err := r.Resolve(Include{Kind: Bracket, Name: "a.h"}, ctx, SearchList{"/sys"})
	if err == nil {
		t.Fatalf("expected NotFound: bracket includes must not search context")
	}
}

func TestResolveNotFound(t *testing.T) {
	r := &Resolver{Policy: PolicyClang, Exists: fakeFS()}
	_, err := r.Resolve(Include{Kind: Bracket, Name: "missing.h"}, Context{}, SearchList{"/sys"})
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("err = %T, want *NotFoundError", err)
	}
}

func TestClangCombineIsParentDirOnly(t *testing.T) {
	prev := Context{dirs: []string{"/a", "/b"}}
	next := PolicyClang.Combine(prev, "/c/header.h")
	want := []string{"/c"}
	if !equalDirs(next.dirs, want) {
		t.Errorf("Clang Combine = %v, want %v", next.dirs, want)
	}
}

func TestMSVCCombinePromotesToEndAndDedups(t *testing.T) {
	prev := Context{dirs: []string{"/a", "/b"}}
	next := PolicyMSVC.Combine(prev, "/a/header.h")
	want := []string{"/b", "/a"}
	if !equalDirs(next.dirs, want) {
		t.Errorf("MSVC Combine = %v, want %v", next.dirs, want)
	}
}

func TestMSVCCombineNoOpWhenAlreadyTop(t *testing.T) {
	prev := Context{dirs: []string{"/a", "/b"}}
	next := PolicyMSVC.Combine(prev, "/b/header.h")
	if !equalDirs(next.dirs, prev.dirs) {
		t.Errorf("MSVC Combine = %v, want unchanged %v", next.dirs, prev.dirs)
	}
}

func equalDirs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
