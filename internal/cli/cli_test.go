package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"storyloom/internal/api"
	"storyloom/internal/store"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// isolate keeps config lookups away from the real home directory.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("STORYLOOM_CONFIG_DIR", t.TempDir())
	return t.TempDir()
}

func mustRun(t *testing.T, args ...string) map[string]any {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("command failed: storyloom %v\nerr: %v\nstderr:\n%s", args, err, stderr)
	}
	var env map[string]any
	if err := json.Unmarshal(stdout, &env); err != nil {
		t.Fatalf("unmarshal stdout: %v\nstdout:\n%s", err, stdout)
	}
	if _, ok := env["data"]; !ok {
		t.Fatalf("expected data key; got %v", env)
	}
	return env
}

func data(env map[string]any) map[string]any {
	m, _ := env["data"].(map[string]any)
	return m
}

func findNode(t *testing.T, story map[string]any, id string) map[string]any {
	t.Helper()
	nodes, _ := story["nodes"].([]any)
	for _, n := range nodes {
		m, _ := n.(map[string]any)
		if m["id"] == id {
			return m
		}
	}
	return nil
}

func TestCampaigns(t *testing.T) {
	dir := isolate(t)

	mustRun(t, "--dir", dir, "campaigns", "create", "crypt")
	mustRun(t, "--dir", dir, "campaigns", "create", "alpha")
	env := mustRun(t, "--dir", dir, "campaigns", "list")
	got, _ := env["data"].([]any)
	if len(got) != 2 || got[0] != "alpha" || got[1] != "crypt" {
		t.Fatalf("expected sorted campaigns; got %v", got)
	}

	stdout, _, err := runCLI(t, []string{"--dir", dir, "--format", "yaml", "campaigns", "list"})
	if err != nil {
		t.Fatalf("yaml list: %v", err)
	}
	if !strings.Contains(string(stdout), "data:") || !strings.Contains(string(stdout), "- crypt") {
		t.Fatalf("expected yaml output; got:\n%s", stdout)
	}
}

func TestStoryEditingAndUndoAcrossInvocations(t *testing.T) {
	dir := isolate(t)

	env := mustRun(t, "--dir", dir, "story", "new", "crypt", "intro", "--title", "The Crypt")
	if data(env)["title"] != "The Crypt" {
		t.Fatalf("unexpected new story: %v", env["data"])
	}
	if _, err := os.Stat(filepath.Join(dir, "crypt", "notes", "intro.json")); err != nil {
		t.Fatalf("expected story file: %v", err)
	}

	env = mustRun(t, "--dir", dir, "node", "add", "crypt", "intro", "--title", "Hall")
	if data(env)["id"] != "node_02" || data(env)["title"] != "Hall" {
		t.Fatalf("unexpected added node: %v", env["data"])
	}
	mustRun(t, "--dir", dir, "node", "set", "crypt", "intro", "node_01", "--next", "node_02", "--content", "A door.")
	env = mustRun(t, "--dir", dir, "branch", "add", "crypt", "intro", "node_01", "--choice", "Sneak", "--entry", "node_02")
	if data(env)["number"] != float64(1) {
		t.Fatalf("expected choice number 1; got %v", env["data"])
	}

	env = mustRun(t, "--dir", dir, "node", "rename", "crypt", "intro", "node_02", "hall")
	if data(env)["updated"] != float64(2) {
		t.Fatalf("expected next and entry repointed; got %v", env["data"])
	}

	mustRun(t, "--dir", dir, "node", "rm", "crypt", "intro", "hall")
	show := data(mustRun(t, "--dir", dir, "story", "show", "crypt", "intro"))
	gate := findNode(t, show, "node_01")
	if gate["next"] != nil {
		t.Fatalf("expected next cleared after delete; got %v", gate["next"])
	}
	if br := gate["branches"].([]any)[0].(map[string]any); br["entry"] != "" {
		t.Fatalf("expected entry cleared after delete; got %v", br)
	}

	env = mustRun(t, "--dir", dir, "undo", "crypt", "intro")
	if data(env)["label"] != "delete node" {
		t.Fatalf("expected undo of delete; got %v", env["data"])
	}
	show = data(mustRun(t, "--dir", dir, "story", "show", "crypt", "intro"))
	if findNode(t, show, "hall") == nil || findNode(t, show, "node_01")["next"] != "hall" {
		t.Fatalf("expected hall and its references restored; got %v", show)
	}

	mustRun(t, "--dir", dir, "redo", "crypt", "intro")
	show = data(mustRun(t, "--dir", dir, "story", "show", "crypt", "intro"))
	if findNode(t, show, "hall") != nil {
		t.Fatalf("expected redo to delete hall again")
	}
	mustRun(t, "--dir", dir, "undo", "crypt", "intro")

	hist := data(mustRun(t, "--dir", dir, "history", "crypt", "intro"))
	undo, _ := hist["undo"].([]any)
	redo, _ := hist["redo"].([]any)
	if len(undo) != 3 || len(redo) != 1 {
		t.Fatalf("expected 3 undo and 1 redo steps; got %d/%d", len(undo), len(redo))
	}
	if undo[0].(map[string]any)["label"] != "rename node" || redo[0].(map[string]any)["label"] != "delete node" {
		t.Fatalf("unexpected history order: %v", hist)
	}

	mustRun(t, "--dir", dir, "history", "crypt", "intro", "--clear")
	_, stderr, err := runCLI(t, []string{"--dir", dir, "undo", "crypt", "intro"})
	if err == nil || !strings.Contains(string(stderr), "nothing to undo") {
		t.Fatalf("expected empty history after clear; err=%v stderr=%s", err, stderr)
	}
}

func TestNodeSetTypeDropsChoicesWithHint(t *testing.T) {
	dir := isolate(t)
	mustRun(t, "--dir", dir, "story", "new", "crypt", "intro")
	mustRun(t, "--dir", dir, "branch", "add", "crypt", "intro", "node_01")

	env := mustRun(t, "--dir", dir, "node", "set", "crypt", "intro", "node_01", "--type", "branch")
	if data(env)["type"] != "branch" {
		t.Fatalf("expected branch type; got %v", env["data"])
	}
	if _, ok := data(env)["branches"]; ok {
		t.Fatalf("branch nodes carry no branches key; got %v", env["data"])
	}
	hints, _ := env["_hints"].([]any)
	if len(hints) != 1 || !strings.Contains(hints[0].(string), "dropped 1") {
		t.Fatalf("expected dropped-choices hint; got %v", env["_hints"])
	}

	_, stderr, err := runCLI(t, []string{"--dir", dir, "branch", "add", "crypt", "intro", "node_01"})
	if err == nil || !strings.Contains(string(stderr), "only main nodes") {
		t.Fatalf("expected not-main error; err=%v stderr=%s", err, stderr)
	}
	if !strings.Contains(string(stderr), "hint:") {
		t.Fatalf("expected a hint on stderr; got %s", stderr)
	}
}

func TestErrors(t *testing.T) {
	dir := isolate(t)
	mustRun(t, "--dir", dir, "story", "new", "crypt", "intro")
	mustRun(t, "--dir", dir, "node", "add", "crypt", "intro")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"duplicate rename", []string{"node", "rename", "crypt", "intro", "node_01", "node_02"}, "already exists"},
		{"missing story", []string{"story", "show", "crypt", "missing"}, "not found"},
		{"missing node", []string{"node", "rm", "crypt", "intro", "ghost"}, "node not found: ghost"},
		{"nothing to set", []string{"node", "set", "crypt", "intro", "node_01"}, "nothing to set"},
		{"bad type", []string{"node", "add", "crypt", "intro", "--type", "side"}, "invalid node type"},
		{"bad choice number", []string{"branch", "rm", "crypt", "intro", "node_01", "0"}, "positive integer"},
		{"duplicate story", []string{"story", "new", "crypt", "intro"}, "already exists"},
		{"bad name", []string{"story", "new", "crypt", ".hidden"}, "invalid name"},
		{"bad format", []string{"--format", "edn", "campaigns", "list"}, "invalid config"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := append([]string{"--dir", dir}, tc.args...)
			_, stderr, err := runCLI(t, args)
			if err == nil {
				t.Fatalf("expected failure")
			}
			if !strings.Contains(string(stderr), tc.want) {
				t.Fatalf("expected %q in stderr; got %s", tc.want, stderr)
			}
		})
	}

	// A failed edit must not leave an undo step behind.
	hist := data(mustRun(t, "--dir", dir, "history", "crypt", "intro"))
	if undo, _ := hist["undo"].([]any); len(undo) != 1 {
		t.Fatalf("expected only the add step; got %v", hist["undo"])
	}
}

func TestAnalysisCommands(t *testing.T) {
	dir := isolate(t)
	mustRun(t, "--dir", dir, "story", "new", "crypt", "intro", "--title", "The Crypt")
	mustRun(t, "--dir", dir, "node", "set", "crypt", "intro", "node_01", "--content", "A heavy door.", "--next", "node_02")
	mustRun(t, "--dir", dir, "node", "add", "crypt", "intro", "--title", "Hall", "--content", "Dark.")

	rep := data(mustRun(t, "--dir", dir, "story", "validate", "crypt", "intro"))
	if rep["valid"] != true {
		t.Fatalf("expected valid story; got %v", rep)
	}

	paths, _ := mustRun(t, "--dir", dir, "story", "paths", "crypt", "intro")["data"].([]any)
	if len(paths) != 1 || len(paths[0].([]any)) != 2 {
		t.Fatalf("expected one path of two nodes; got %v", paths)
	}

	hits, _ := mustRun(t, "--dir", dir, "story", "search", "crypt", "intro", "DOOR")["data"].([]any)
	if len(hits) != 1 || hits[0].(map[string]any)["id"] != "node_01" {
		t.Fatalf("expected one case-insensitive hit; got %v", hits)
	}

	stdout, _, err := runCLI(t, []string{"--dir", dir, "story", "stats", "crypt", "intro", "--text"})
	if err != nil {
		t.Fatalf("stats --text: %v", err)
	}
	if !strings.Contains(string(stdout), "Nodes: 2 (2 main, 0 branch)") || !strings.Contains(string(stdout), "Completion: 100%") {
		t.Fatalf("unexpected stats text:\n%s", stdout)
	}

	mustRun(t, "--dir", dir, "node", "set", "crypt", "intro", "node_02", "--next", "ghost")
	stdout, _, err = runCLI(t, []string{"--dir", dir, "story", "validate", "crypt", "intro", "--strict"})
	if err == nil {
		t.Fatalf("expected --strict to fail on a dangling next")
	}
	if !strings.Contains(string(stdout), `"valid":false`) {
		t.Fatalf("expected report on stdout; got %s", stdout)
	}
}

func TestExport(t *testing.T) {
	dir := isolate(t)
	mustRun(t, "--dir", dir, "story", "new", "crypt", "intro", "--title", "The Crypt")

	stdout, _, err := runCLI(t, []string{"--dir", dir, "story", "export", "crypt", "intro", "--as", "csv"})
	if err != nil {
		t.Fatalf("export csv: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "ID,Type,Title,Content,Next,Branches\n") {
		t.Fatalf("unexpected csv:\n%s", stdout)
	}

	out := filepath.Join(t.TempDir(), "crypt.dot")
	env := mustRun(t, "--dir", dir, "story", "export", "crypt", "intro", "--as", "dot", "-o", out)
	if data(env)["path"] != out {
		t.Fatalf("unexpected export result: %v", env["data"])
	}
	b, err := os.ReadFile(out)
	if err != nil || !strings.Contains(string(b), "digraph") {
		t.Fatalf("expected dot file; err=%v\n%s", err, b)
	}
	if _, _, err := runCLI(t, []string{"--dir", dir, "story", "export", "crypt", "intro", "--as", "dot", "-o", out}); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}

	_, stderr, err := runCLI(t, []string{"--dir", dir, "story", "export", "crypt", "intro", "--as", "png"})
	if err == nil || !strings.Contains(string(stderr), "not implemented") {
		t.Fatalf("expected png to be unsupported; err=%v stderr=%s", err, stderr)
	}
}

func TestShowNodeAndRender(t *testing.T) {
	dir := isolate(t)
	mustRun(t, "--dir", dir, "story", "new", "crypt", "intro", "--title", "The Crypt")

	env := mustRun(t, "--dir", dir, "story", "show", "crypt", "intro", "--node", "node_01")
	if data(env)["title"] != "Opening" {
		t.Fatalf("unexpected node: %v", env["data"])
	}

	t.Setenv("STORYLOOM_TUI_THEME", "dark")
	stdout, _, err := runCLI(t, []string{"--dir", dir, "story", "show", "crypt", "intro", "--render"})
	if err != nil {
		t.Fatalf("show --render: %v", err)
	}
	if !strings.Contains(string(stdout), "Crypt") {
		t.Fatalf("expected rendered title; got:\n%s", stdout)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	st, err := store.New(t.TempDir(), 4)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	if err := st.CreateCampaign(context.Background(), "crypt"); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, ln, api.New(st, api.Options{}), st, true, zap.NewNop())
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/campaigns")
	if err != nil {
		cancel()
		t.Fatalf("GET campaigns: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "crypt") {
		t.Fatalf("unexpected response %d: %s", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop")
	}
}

func TestDocs(t *testing.T) {
	dir := isolate(t)

	env := mustRun(t, "--dir", dir, "docs")
	topics, _ := data(env)["topics"].([]any)
	if len(topics) == 0 {
		t.Fatalf("expected topics; got %v", env["data"])
	}

	stdout, _, err := runCLI(t, []string{"--dir", dir, "docs", "format", "--raw"})
	if err != nil {
		t.Fatalf("docs --raw: %v", err)
	}
	if !strings.HasPrefix(string(stdout), "# Story file format") {
		t.Fatalf("unexpected raw docs:\n%s", stdout)
	}

	_, stderr, err := runCLI(t, []string{"--dir", dir, "docs", "nope"})
	if err == nil || !strings.Contains(string(stderr), "unknown docs topic") {
		t.Fatalf("expected unknown topic error; err=%v stderr=%s", err, stderr)
	}
}
