package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phobologic/typeinfo/internal/discover"
	"github.com/phobologic/typeinfo/internal/frontend"
	"github.com/phobologic/typeinfo/internal/plugin"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "shape.h", `#pragma once
#include <string>

class Shape {
public:
    virtual ~Shape();
    virtual double area() const = 0;
    std::string name() const;
};
`)
	writeTestFile(t, dir, "circle.cpp", `#include "shape.h"

class Circle : public Shape {
    double r;
public:
    explicit Circle(double r);
    double area() const override;
};
`)
	writeTestFile(t, dir, "square.cpp", `#include "shape.h"

struct Square : Shape {
    double side;
    double area() const;
};
`)
	return dir
}

const (
	circleBlock = "Circle -> Shape\n" +
		"|_Fields\n" +
		"| |_ r (double|private)\n" +
		"|\n" +
		"|_Methods\n" +
		"| |_ area (double()|public|override)\n" +
		"\n"
	shapeBlock = "Shape\n" +
		"|_Fields\n" +
		"|\n" +
		"|_Methods\n" +
		"| |_ area (double()|public|virtual|pure)\n" +
		"| |_ name (std::string()|public)\n" +
		"\n"
	squareBlock = "Square -> Shape\n" +
		"|_Fields\n" +
		"| |_ side (double|public)\n" +
		"|\n" +
		"|_Methods\n" +
		"| |_ area (double()|public|override)\n" +
		"\n"
)

func TestRunBasic(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	want := circleBlock + shapeBlock + squareBlock
	if got := stdout.String(); got != want {
		t.Errorf("output mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
	if stderr.Len() != 0 {
		t.Errorf("unexpected stderr: %s", stderr.String())
	}
}

func TestRunExplicitFile(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{filepath.Join(dir, "shape.h")}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != shapeBlock {
		t.Errorf("got:\n%s\nwant:\n%s", stdout.String(), shapeBlock)
	}
}

func TestRunOverrideNeedsVisibleBase(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	// Without shape.h, Square::area cannot be matched to a base method;
	// Circle::area still says override.
	var stdout, stderr bytes.Buffer
	err := run([]string{filepath.Join(dir, "circle.cpp"), filepath.Join(dir, "square.cpp")}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "| |_ area (double()|public|override)\n\nSquare") {
		t.Errorf("Circle::area should be an override:\n%s", out)
	}
	if !strings.HasSuffix(out, "| |_ area (double()|public)\n\n") {
		t.Errorf("Square::area should be ordinary without its base:\n%s", out)
	}
}

func TestRunNoClasses(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "main.cpp", "int main() { return 0; }\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no output, got %q", stdout.String())
	}
}

func TestRunToon(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--format", "toon", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"classes[3]{file,name,tag,bases}:",
		"  circle.cpp,Circle,class,Shape",
		"fields[2]{class,name,type,access}:",
		"methods[4]{class,name,returns,access,dispatch}:",
		"  Shape,area,double,public,pure",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"-V", "--version"} {
		var stdout, stderr bytes.Buffer
		if err := run([]string{flag}, &stdout, &stderr); err != nil {
			t.Fatalf("run %s: %v", flag, err)
		}
		if !strings.HasPrefix(stdout.String(), "typeinfo ") {
			t.Errorf("%s: expected version output, got %q", flag, stdout.String())
		}
	}
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "hello")

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if !errors.Is(err, discover.ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
}

func TestRunUnknownFrontend(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--frontend", "gcc", dir}, &stdout, &stderr)
	if !errors.Is(err, frontend.ErrUnknownFrontend) {
		t.Fatalf("expected ErrUnknownFrontend, got %v", err)
	}
}

func TestRunUnknownFormat(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--format", "xml", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "xml") {
		t.Fatalf("expected format error, got %v", err)
	}
}

func TestRunPluginArgsIgnored(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var plain, withArgs, stderr bytes.Buffer
	if err := run([]string{dir}, &plain, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := run([]string{"--plugin-arg", "verbose", "--plugin-arg", "x=1", dir}, &withArgs, &stderr); err != nil {
		t.Fatalf("run with plugin args: %v", err)
	}
	if plain.String() != withArgs.String() {
		t.Error("plugin arguments should not change the output")
	}
}

func TestRunCache(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	// Age the sources so the cache is strictly newer on coarse clocks.
	past := time.Now().Add(-time.Hour)
	for _, name := range []string{"shape.h", "circle.cpp", "square.cpp"} {
		if err := os.Chtimes(filepath.Join(dir, name), past, past); err != nil {
			t.Fatal(err)
		}
	}

	var stdout1, stderr1 bytes.Buffer
	err := run([]string{"--cache", cachePath, dir}, &stdout1, &stderr1)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	cacheData, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("cache not created: %v", err)
	}
	if string(cacheData) != stdout1.String() {
		t.Error("cache should hold the report")
	}

	// Second run is served from the cache.
	var stdout2, stderr2 bytes.Buffer
	err = run([]string{"--cache", cachePath, "-v", dir}, &stdout2, &stderr2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stdout1.String() != stdout2.String() {
		t.Errorf("cache mismatch:\nfirst:\n%s\nsecond:\n%s", stdout1.String(), stdout2.String())
	}
	if !strings.Contains(stderr2.String(), "using cache") {
		t.Errorf("expected cache hit to be logged, stderr:\n%s", stderr2.String())
	}
}

func TestRunOutputFile(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	out := filepath.Join(t.TempDir(), "report.txt")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"-o", out, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.Len() != 0 {
		t.Error("nothing should be written to stdout with -o")
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != circleBlock+shapeBlock+squareBlock {
		t.Errorf("unexpected file content:\n%s", data)
	}
}

func TestRunMaxFiles(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"-n", "1", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// shape.h is the base of both other files.
	if stdout.String() != shapeBlock {
		t.Errorf("expected only Shape, got:\n%s", stdout.String())
	}
}

func TestRunClassFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"--class", "circ", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != circleBlock {
		t.Errorf("expected only Circle, got:\n%s", stdout.String())
	}
}

func TestRunMaxFileSize(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, "big.cpp", "struct Big { int x; };\n"+strings.Repeat("// padding\n", 200))

	var stdout, stderr bytes.Buffer
	err := run([]string{"--max-file-size", "1000", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(stdout.String(), "Big") {
		t.Error("big.cpp should have been skipped")
	}
	if !strings.Contains(stderr.String(), "Warning: big.cpp: skipped") {
		t.Errorf("expected size warning, got:\n%s", stderr.String())
	}
}

func TestRunDiagnostics(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "broken.cpp", "class Ok { int x; };\nclass Broken { int y\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stderr.String(), "Warning: broken.cpp:") {
		t.Errorf("expected diagnostic warning, got:\n%s", stderr.String())
	}
	if !strings.HasPrefix(stdout.String(), "Ok\n") {
		t.Errorf("valid classes should still be reported:\n%s", stdout.String())
	}

	stdout.Reset()
	err := run([]string{"--strict", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "--strict") {
		t.Fatalf("expected strict failure, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Error("strict failure should not print a report")
	}
}

func TestRunClangSkipsHeaders(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "only.h", "class H {};\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"--frontend", "clang", dir}, &stdout, &stderr)
	if !errors.Is(err, discover.ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
}

func TestRunASTDump(t *testing.T) {
	t.Parallel()
	dump := filepath.Join("internal", "clangast", "testdata", "circle.ast.json")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--skip-included", dump}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	if !strings.HasPrefix(out, "Circle -> Shape\n") {
		t.Errorf("expected Circle report, got:\n%s", out)
	}
	if strings.Contains(out, "\nShape\n") {
		t.Errorf("included Shape should be skipped:\n%s", out)
	}
	if !strings.Contains(out, "| |_ area (double()|public|override)\n") {
		t.Errorf("expected area to be an override:\n%s", out)
	}
}

func TestRunASTDumpSkipIncludedKeepsBases(t *testing.T) {
	t.Parallel()
	// Circle::area carries no override keyword in this dump; the skipped
	// Shape from shape.h still makes it an override.
	dump := filepath.Join("internal", "clangast", "testdata", "circle_implicit.ast.json")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--skip-included", dump}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	if strings.Contains(out, "\nShape\n") || strings.HasPrefix(out, "Shape\n") {
		t.Errorf("included Shape should be skipped:\n%s", out)
	}
	if !strings.Contains(out, "| |_ area (double()|public|override)\n") {
		t.Errorf("expected area to be an override:\n%s", out)
	}
}

func TestRunFinalWithoutBase(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "leaf.cpp", "struct Leaf { virtual void f() final; };\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "Leaf\n|_Fields\n|\n|_Methods\n| |_ f (void()|public|virtual)\n\n"
	if stdout.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", stdout.String(), want)
	}
}

func TestRunNamespacedBase(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "geo.cpp", `namespace geo {
struct Shape { virtual double area() const = 0; };
}
struct Circle : geo::Shape { double area() const; };
`)

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "Circle -> geo::Shape\n|_Fields\n|\n|_Methods\n| |_ area (double()|public|override)\n\n"
	if stdout.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", stdout.String(), want)
	}
}

func TestRunBaseInOtherNamespace(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "shape.h", "struct Shape { virtual double area() const; };\n")
	writeTestFile(t, dir, "sq.cpp", "struct Sq : other::Shape { double area() const; };\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "Sq -> other::Shape\n|_Fields\n|\n|_Methods\n| |_ area (double()|public)\n\n"
	if !strings.HasSuffix(stdout.String(), want) {
		t.Errorf("Sq::area should not match the unrelated Shape:\n%s", stdout.String())
	}
}

func TestRunSeveralDirectories(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "lib/shape.h", "class Shape { public: virtual void draw(); };\n")
	writeTestFile(t, dir, "app/shape.h", "class Widget { public: void draw(); };\n")
	t.Chdir(dir)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--format", "toon", "lib", "app"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{
		"  " + filepath.Join("lib", "shape.h") + ",Shape,class,",
		"  " + filepath.Join("app", "shape.h") + ",Widget,class,",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRunHelpListsActions(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--help"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, name := range plugin.Names() {
		if !strings.Contains(stdout.String(), name+" ") || !strings.Contains(stdout.String(), plugin.Describe(name)) {
			t.Errorf("help should describe %s:\n%s", name, stdout.String())
		}
	}
}

func TestRunConfigFile(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	cfg := filepath.Join(t.TempDir(), "typeinfo.yaml")
	writeTestFile(t, filepath.Dir(cfg), filepath.Base(cfg), "output:\n  format: toon\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"--config", cfg, dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "classes[3]") {
		t.Errorf("config should select toon output, got:\n%s", stdout.String())
	}

	// Flags override the file.
	stdout.Reset()
	if err := run([]string{"--config", cfg, "--format", "text", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "Circle -> Shape\n") {
		t.Errorf("--format should win over config, got:\n%s", stdout.String())
	}

	if err := run([]string{"--config", filepath.Join(dir, "missing.yaml"), dir}, &stdout, &stderr); err == nil {
		t.Error("an explicitly named config file must exist")
	}
}
