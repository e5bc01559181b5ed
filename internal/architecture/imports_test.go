package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Layering, inner to outer: platform/pkg, domain and pure core packages,
// data, services, jobs, then http and app. Imports only point inward.
var layerRules = []struct {
	prefixes []string
	layer    string
}{
	{[]string{"internal/platform/", "internal/pkg/"}, "platform"},
	{[]string{"internal/domain/"}, "domain"},
	{[]string{"internal/rbac/", "internal/pdfcp/", "internal/geo/", "internal/stats/"}, "core"},
	{[]string{"internal/data/"}, "data"},
	{[]string{"internal/services/"}, "services"},
	{[]string{"internal/jobs/"}, "jobs"},
}

func TestImportBoundaries(t *testing.T) {
	modulePath := moduleImportPath(t)
	var violations []string
	walkImports(t, func(rel, imp string) {
		layer := layerFor(rel)
		for _, bad := range disallowedImports(modulePath, layer) {
			if imp == bad || strings.HasPrefix(imp, bad+"/") {
				violations = append(violations, fmt.Sprintf("- %s (%s) imports %q", rel, layer, imp))
				return
			}
		}
	})
	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n%s", strings.Join(violations, "\n"))
	}
}

func TestHTTPOnlyImportedByApp(t *testing.T) {
	httpPkg := moduleImportPath(t) + "/internal/http"
	var offenders []string
	walkImports(t, func(rel, imp string) {
		if strings.HasPrefix(rel, "internal/http/") || strings.HasPrefix(rel, "internal/app/") {
			return
		}
		if imp == httpPkg || strings.HasPrefix(imp, httpPkg+"/") {
			offenders = append(offenders, fmt.Sprintf("- %s imports %q", rel, imp))
		}
	})
	if len(offenders) > 0 {
		t.Fatalf("internal/http is wired by internal/app only:\n%s", strings.Join(offenders, "\n"))
	}
}

func TestLayerForCoversCorePackages(t *testing.T) {
	cases := map[string]string{
		"internal/rbac/filter.go":             "core",
		"internal/pdfcp/workflow/workflow.go": "core",
		"internal/data/repos/repos.go":        "data",
		"internal/platform/logger/logger.go":  "platform",
		"internal/app/app.go":                 "",
	}
	for rel, want := range cases {
		if got := layerFor(rel); got != want {
			t.Errorf("layerFor(%q) = %q, want %q", rel, got, want)
		}
	}
}

func layerFor(rel string) string {
	for _, r := range layerRules {
		for _, p := range r.prefixes {
			if strings.HasPrefix(rel, p) {
				return r.layer
			}
		}
	}
	return ""
}

func disallowedImports(modulePath string, layer string) []string {
	pkg := func(p string) string { return modulePath + "/internal/" + p }
	outer := []string{pkg("app"), pkg("http")}
	switch layer {
	case "platform":
		return append(outer, pkg("services"), pkg("data"), pkg("jobs"), pkg("domain"))
	case "domain", "core":
		return append(outer, pkg("services"), pkg("data"), pkg("jobs"))
	case "data":
		return append(outer, pkg("services"), pkg("jobs"))
	case "services":
		return append(outer, pkg("jobs"))
	case "jobs":
		return outer
	default:
		return nil
	}
}

// walkImports calls fn for every import of every .go file under internal/.
func walkImports(t *testing.T, fn func(rel, imp string)) {
	t.Helper()
	root := moduleRoot(t)
	fset := token.NewFileSet()
	err := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			if imp, err := strconv.Unquote(spec.Path.Value); err == nil {
				fn(filepath.ToSlash(rel), imp)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk internal/: %v", err)
	}
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found")
		}
		dir = parent
	}
}

func moduleImportPath(t *testing.T) string {
	t.Helper()
	f, err := os.Open(filepath.Join(moduleRoot(t), "go.mod"))
	if err != nil {
		t.Fatalf("open go.mod: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if mp, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "module "); ok {
			return strings.TrimSpace(mp)
		}
	}
	t.Fatalf("module path not found in go.mod")
	return ""
}
