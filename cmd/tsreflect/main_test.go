package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-json-experiment/json"

	"github.com/tsreflect/tsreflect/internal/plugin"
	"github.com/tsreflect/tsreflect/internal/testutil"
)

const projectTSConfig = `{
  "compilerOptions": {
    "strict": true,
    "target": "es2022",
    "module": "esnext",
    "moduleResolution": "bundler",
    "rootDir": "./src",
    "outDir": "./dist"
  },
  "include": ["src"]
}`

const projectIndex = `declare function $schema<T>(): string;
interface User { id: number; tags: string[] }

export const userSchema = $schema<User>();
export const idSchema = $schema<number>();
`

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	return parseContext(t, context.Background(), args...)
}

func parseContext(t *testing.T, ctx context.Context, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	cli := &CLI{Globals: Globals{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}}
	parser, err := kong.New(cli,
		kong.Name("tsreflect"),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	if err != nil {
		t.Fatal(err)
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		t.Fatalf("parsing %v: %v", args, err)
	}
	return cli, kctx
}

// run executes a command line and returns its stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cli, kctx := parse(t, args...)
	err := kctx.Run(&cli.Globals)
	return cli.Stdout.(*bytes.Buffer).String(), cli.Stderr.(*bytes.Buffer).String(), err
}

// chdirProject writes files into a temporary directory and makes it the
// working directory for the rest of the test.
func chdirProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, files)
	t.Chdir(dir)
	return dir
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		command string
		project string
	}{
		{"default is build", nil, "build", "tsconfig.json"},
		{"build flags without command", []string{"--force"}, "build", "tsconfig.json"},
		{"project shorthand", []string{"build", "-p", "tsconfig.build.json"}, "build", "tsconfig.build.json"},
		{"dump with files", []string{"dump", "src/a.ts", "src/b.ts"}, "dump <files>", "tsconfig.json"},
		{"watch", []string{"watch", "--poll", "1s"}, "watch", "tsconfig.json"},
		{"version", []string{"version"}, "version", "tsconfig.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, kctx := parse(t, tt.args...)
			if got := kctx.Command(); got != tt.command {
				t.Errorf("command = %q, want %q", got, tt.command)
			}
			if cli.Project != tt.project {
				t.Errorf("project = %q, want %q", cli.Project, tt.project)
			}
		})
	}
}

func TestGlobalsFromEnvironment(t *testing.T) {
	t.Setenv("TSREFLECT_LOG_LEVEL", "debug")
	t.Setenv("TSREFLECT_CONFIG", "configs/tsreflect.yaml")

	cli, _ := parse(t)
	if cli.LogLevel != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", cli.LogLevel)
	}
	if cli.Config != "configs/tsreflect.yaml" {
		t.Errorf("config = %q", cli.Config)
	}

	cli, _ = parse(t, "--log-level", "error")
	if cli.LogLevel != slog.LevelError {
		t.Errorf("flag must override the environment, got %v", cli.LogLevel)
	}
}

func TestLoadDotenv(t *testing.T) {
	const key = "TSREFLECT_DOTENV_VALUE"
	t.Cleanup(func() { os.Unsetenv(key) })

	tests := []struct {
		name    string
		content string // empty means no file
		warning string
		value   string
	}{
		{"missing file", "", "", ""},
		{"malformed file", "BAD-KEY=1\n", "warning: loading ", ""},
		{"valid file", key + "=from-dotenv\n", "", "from-dotenv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".env")
			if tt.content != "" {
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			var buf bytes.Buffer
			loadDotenv(&buf, path)
			if tt.warning == "" && buf.Len() != 0 {
				t.Errorf("unexpected output %q", buf.String())
			}
			if tt.warning != "" && !strings.HasPrefix(buf.String(), tt.warning+path+": ") {
				t.Errorf("expected a warning for %s, got %q", path, buf.String())
			}
			if got := os.Getenv(key); got != tt.value {
				t.Errorf("%s = %q, want %q", key, got, tt.value)
			}
		})
	}
}

func TestLoadOrDiscoverConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, path, err := loadOrDiscoverConfig("", dir)
	if err != nil {
		t.Fatal(err)
	}
	if path != "" || cfg.Marker != "$schema" {
		t.Errorf("expected defaults without a config file, got %q, %+v", path, cfg)
	}

	testutil.WriteFiles(t, dir, map[string]string{
		"tsreflect.config.yaml": "marker: reflect\n",
		"alt/custom.json":       `{"marker": "describe"}`,
	})

	cfg, path, err = loadOrDiscoverConfig("", dir)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "tsreflect.config.yaml") || cfg.Marker != "reflect" {
		t.Errorf("discovered %q with marker %q", path, cfg.Marker)
	}

	cfg, path, err = loadOrDiscoverConfig("alt/custom.json", dir)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(dir, "alt", "custom.json") || cfg.Marker != "describe" {
		t.Errorf("loaded %q with marker %q", path, cfg.Marker)
	}

	if _, _, err := loadOrDiscoverConfig("missing.json", dir); err == nil {
		t.Error("expected an error for a missing explicit config")
	}
}

func TestBuildCommand(t *testing.T) {
	dir := chdirProject(t, map[string]string{
		"tsconfig.json": projectTSConfig,
		"src/index.ts":  projectIndex,
	})

	_, stderr, err := run(t, "build")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, stderr)
	}
	for _, want := range []string{"compiling with tsconfig: tsconfig.json", "emitted 1 file(s)", "--- timing ---"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
	js, err := os.ReadFile(filepath.Join(dir, "dist", "index.js"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(js), "$schema") {
		t.Errorf("marker left in output:\n%s", js)
	}

	_, stderr, err = run(t)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stderr, "no changes since last build, skipping") {
		t.Errorf("second build was not skipped:\n%s", stderr)
	}
}

func TestBuildCommandTypeErrors(t *testing.T) {
	chdirProject(t, map[string]string{
		"tsconfig.json": projectTSConfig,
		"src/index.ts":  "export const n: number = \"not a number\";\n",
	})

	_, stderr, err := run(t, "build")
	if err == nil || !strings.Contains(err.Error(), "found 1 type error(s)") {
		t.Fatalf("expected a type error, got %v", err)
	}
	if !strings.Contains(stderr, "TS2322") {
		t.Errorf("type error not reported:\n%s", stderr)
	}
}

func TestBuildCommandInvalidConfig(t *testing.T) {
	chdirProject(t, map[string]string{
		"tsconfig.json":         projectTSConfig,
		"src/index.ts":          projectIndex,
		"tsreflect.config.json": `{"canonicalImport": "not valid"}`,
	})

	_, stderr, err := run(t, "build")
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Fatalf("expected invalid config, got %v", err)
	}
	if !strings.Contains(stderr, "canonicalImport") {
		t.Errorf("config problem not printed:\n%s", stderr)
	}
}

func TestDumpCommand(t *testing.T) {
	dir := chdirProject(t, map[string]string{
		"tsconfig.json": projectTSConfig,
		"src/index.ts":  projectIndex,
		"src/other.ts":  "declare function $schema<T>(): string;\nexport const s = $schema<string>();\n",
	})

	stdout, stderr, err := run(t, "dump", "src/index.ts")
	if err != nil {
		t.Fatalf("dump: %v\n%s", err, stderr)
	}

	var entries []struct {
		File        string         `json:"file"`
		Line        int            `json:"line"`
		Type        string         `json:"type"`
		Description map[string]any `json:"description"`
	}
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		t.Fatalf("decoding dump: %v\n%s", err, stdout)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 markers from index.ts, got %d:\n%s", len(entries), stdout)
	}
	if entries[0].File != "src/index.ts" || entries[0].Line != 4 || entries[0].Type != "User" {
		t.Errorf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Line != 5 || entries[1].Description["primitive"] != true {
		t.Errorf("unexpected second entry %+v", entries[1])
	}
	if !strings.Contains(stdout, "\n  {") {
		t.Errorf("dump is not indented:\n%s", stdout)
	}

	if _, err := os.Stat(filepath.Join(dir, "dist")); !os.IsNotExist(err) {
		t.Errorf("dump must not write output: %v", err)
	}
}

func TestDumpCommandToFile(t *testing.T) {
	dir := chdirProject(t, map[string]string{
		"tsconfig.json": projectTSConfig,
		"src/index.ts":  projectIndex,
	})

	stdout, stderr, err := run(t, "dump", "-o", "markers.json")
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if stdout != "" {
		t.Errorf("expected nothing on stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "wrote 2 marker description(s) to markers.json") {
		t.Errorf("unexpected stderr:\n%s", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "markers.json")); err != nil {
		t.Error(err)
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, plugin.Name+" ") {
		t.Errorf("unexpected version output %q", stdout)
	}
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatchCommand(t *testing.T) {
	dir := chdirProject(t, map[string]string{
		"tsconfig.json": projectTSConfig,
		"src/index.ts":  projectIndex,
	})
	js := filepath.Join(dir, "dist", "index.js")
	ran := filepath.Join(dir, "ran")
	exists := func(path string) func() bool {
		return func() bool {
			_, err := os.Stat(path)
			return err == nil
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cli, kctx := parseContext(t, ctx, "watch", "--poll", "20ms", "--debounce", "20ms", "--exec", "touch ran")
	errc := make(chan error, 1)
	go func() { errc <- kctx.Run(&cli.Globals) }()

	waitFor(t, "the initial build", exists(js))
	waitFor(t, "the exec command", exists(ran))
	if err := os.Remove(ran); err != nil {
		t.Fatal(err)
	}

	edited := projectIndex + "export const flagSchema = $schema<boolean>();\n"
	if err := os.WriteFile(filepath.Join(dir, "src", "index.ts"), []byte(edited), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "the rebuild", func() bool {
		data, err := os.ReadFile(js)
		return err == nil && strings.Contains(string(data), "flagSchema")
	})
	waitFor(t, "the exec command to restart", exists(ran))

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("watch: %v", err)
	}
	stderr := cli.Stderr.(*bytes.Buffer).String()
	for _, want := range []string{"change detected in 1 file(s), rebuilding...", "starting touch ran", "build finished in"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestIsWithin(t *testing.T) {
	tests := []struct {
		path, dir string
		want      bool
	}{
		{"/p/dist/index.js", "/p/dist", true},
		{"/p/dist", "/p/dist", true},
		{"/p/src/index.ts", "/p/dist", false},
		{"/p/distribution/a.ts", "/p/dist", false},
		{"/p/..foo/a.ts", "/p", true},
	}
	for _, tt := range tests {
		if got := isWithin(tt.path, tt.dir); got != tt.want {
			t.Errorf("isWithin(%q, %q) = %v, want %v", tt.path, tt.dir, got, tt.want)
		}
	}
}
