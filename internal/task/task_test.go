package task

import (
	"testing"

	"ccdispatch/internal/arg"
)

func classify(t *testing.T, argv ...string) *arg.Classified {
	t.Helper()
	cl, err := arg.NewMSVCClassifier().Classify(argv)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	return cl
}

func TestBuildSingleSource(t *testing.T) {
	cl := classify(t, "/c", "/O2", "/Fomain.obj", "main.cpp")
	tasks, err := Build("msvc-v19", arg.NewMSVCClassifier(), cl, CommandEnv{ProgramPath: "cl.exe", Cwd: "/work"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
	tk := tasks[0]
	if tk.InputSource != "main.cpp" || tk.OutputObject != "main.obj" || tk.Language != arg.LangCPP {
		t.Errorf("task = %+v", tk)
	}
}

func TestBuildDefaultOutputObject(t *testing.T) {
	cl := classify(t, "/c", "main.c")
	tasks, err := Build("msvc-v19", arg.NewMSVCClassifier(), cl, CommandEnv{ProgramPath: "cl.exe", Cwd: "/work"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tasks[0].OutputObject != "/work/main.obj" {
		t.Errorf("OutputObject = %q, want /work/main.obj", tasks[0].OutputObject)
	}
	if tasks[0].Language != arg.LangC {
		t.Errorf("Language = %v, want C", tasks[0].Language)
	}
}

func TestBuildOutputObjectIntoDirectory(t *testing.T) {
	cl := classify(t, "/c", "/Foobj/", "src/main.cpp")
	tasks, err := Build("msvc-v19", arg.NewMSVCClassifier(), cl, CommandEnv{ProgramPath: "cl.exe", Cwd: "/work"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := "obj/main.obj"
	if tasks[0].OutputObject != want {
		t.Errorf("OutputObject = %q, want %q", tasks[0].OutputObject, want)
	}
}

func TestBuildPCHGenerate(t *testing.T) {
	cl := classify(t, "/c", "/Ycstdafx.h", "/Fpstdafx.pch", "stdafx.cpp")
	tasks, err := Build("msvc-v19", arg.NewMSVCClassifier(), cl, CommandEnv{Cwd: "/work"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tk := tasks[0]
	if !tk.IsPCHGenerate() || tk.IsPCHConsume() {
		t.Errorf("task = %+v, want PCH-generate only", tk)
	}
	if tk.OutputPrecompiled != "stdafx.pch" || tk.MarkerPrecompiled != "stdafx.h" {
		t.Errorf("task = %+v", tk)
	}
}

func TestBuildPCHGenerateDefaultPath(t *testing.T) {
	cl := classify(t, "/c", "/Ycstdafx.h", "stdafx.cpp")
	tasks, err := Build("msvc-v19", arg.NewMSVCClassifier(), cl, CommandEnv{Cwd: "/work"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tasks[0].OutputPrecompiled != "stdafx.pch" {
		t.Errorf("OutputPrecompiled = %q, want default stdafx.pch", tasks[0].OutputPrecompiled)
	}
}

func TestBuildPCHConsume(t *testing.T) {
	cl := classify(t, "/c", "/Yustdafx.h", "/Fpstdafx.pch", "main.cpp")
	tasks, err := Build("msvc-v19", arg.NewMSVCClassifier(), cl, CommandEnv{Cwd: "/work"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	tk := tasks[0]
	if !tk.IsPCHConsume() || tk.IsPCHGenerate() {
		t.Errorf("task = %+v, want PCH-consume only", tk)
	}
	if tk.InputPrecompiled != "stdafx.pch" {
		t.Errorf("InputPrecompiled = %q", tk.InputPrecompiled)
	}
}

func TestBuildRejectsYcAndYuTogether(t *testing.T) {
	cl := classify(t, "/c", "/Ycstdafx.h", "/Yustdafx.h", "main.cpp")
	_, err := Build("msvc-v19", arg.NewMSVCClassifier(), cl, CommandEnv{Cwd: "/work"})
	if err == nil {
		t.Fatalf("expected error for /Yc + /Yu")
	}
}

func TestBuildRejectsNoSource(t *testing.T) {
	cl := classify(t, "/c", "/O2")
	_, err := Build("msvc-v19", arg.NewMSVCClassifier(), cl, CommandEnv{Cwd: "/work"})
	if err == nil {
		t.Fatalf("expected error for missing input source")
	}
}

func TestBuildMultiSource(t *testing.T) {
	cl := classify(t, "/c", "a.cpp", "b.cpp")
	tasks, err := Build("msvc-v19", arg.NewMSVCClassifier(), cl, CommandEnv{Cwd: "/work"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len(tasks) = %d, want 2", len(tasks))
	}
	if tasks[0].InputSource != "a.cpp" || tasks[1].InputSource != "b.cpp" {
		t.Errorf("tasks = %+v", tasks)
	}
}
