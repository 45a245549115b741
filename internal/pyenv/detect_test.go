package pyenv

import (
	"path/filepath"
	"testing"
)

func TestDetectWorkspaceVenvsFindsDotVenv(t *testing.T) {
	root := t.TempDir()
	interp := makeEnv(t, filepath.Join(root, ".venv"), "pyvenv.cfg", "home = /usr/bin\n")

	got := DetectWorkspaceVenvs([]string{root})
	if len(got) != 1 {
		t.Fatalf("expected one venv, got %+v", got)
	}
	if got[0].Interpreter != interp || got[0].Kind != VenvStd {
		t.Fatalf("unexpected venv %+v", got[0])
	}
}

func TestDetectWorkspaceVenvsRanksByKind(t *testing.T) {
	root := t.TempDir()
	makeEnv(t, filepath.Join(root, "a-conda"), "conda-meta", "")
	uvInterp := makeEnv(t, filepath.Join(root, "b-uv"), "pyvenv.cfg", "home = /usr/bin\nuv = 0.4.18\n")
	writeFile(t, filepath.Join(root, "c-pipenv", "Pipfile"), "[packages]\n")
	makeEnv(t, filepath.Join(root, "c-pipenv", ".venv"), "", "")

	got := DetectWorkspaceVenvs([]string{root})
	var kinds []VenvKind
	for _, v := range got {
		kinds = append(kinds, v.Kind)
	}
	want := []VenvKind{VenvUV, VenvConda, VenvPipenv}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
	if got[0].Interpreter != uvInterp {
		t.Fatalf("expected uv interpreter first, got %s", got[0].Interpreter)
	}
}

func TestDetectWorkspaceVenvsDeduplicatesProjectAndEnv(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pyproject.toml"), "[tool.poetry]\n")
	makeEnv(t, filepath.Join(root, ".venv"), "pyvenv.cfg", "home = /usr/bin\n")

	got := DetectWorkspaceVenvs([]string{root})
	if len(got) != 1 {
		t.Fatalf("expected the shared interpreter once, got %+v", got)
	}
	if got[0].Kind != VenvStd {
		t.Fatalf("expected the better-ranked kind to win, got %s", got[0].Kind)
	}
}

func TestDetectWorkspaceVenvsOnlyOneLevelDeep(t *testing.T) {
	root := t.TempDir()
	makeEnv(t, filepath.Join(root, "nested", "deeper", ".venv"), "pyvenv.cfg", "")

	if got := DetectWorkspaceVenvs([]string{root}); len(got) != 0 {
		t.Fatalf("expected no detection below one level, got %+v", got)
	}
}

func TestDetectWorkspaceVenvsRequiresInterpreter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".venv", "pyvenv.cfg"), "")

	if got := DetectWorkspaceVenvs([]string{root, ""}); len(got) != 0 {
		t.Fatalf("marker without interpreter must be ignored, got %+v", got)
	}
}
