package main

import (
	"os"
	"strings"

	"storyloom/internal/cli"
)

// splitStoryRef accepts "campaign/story" and returns its two halves.
func splitStoryRef(s string) (string, string, bool) {
	s = strings.TrimSpace(s)
	campaign, story, ok := strings.Cut(s, "/")
	if !ok || campaign == "" || story == "" || strings.Contains(story, "/") {
		return "", "", false
	}
	return campaign, story, true
}

// rewriteStoryRefArgs turns `storyloom <campaign>/<story>` into
// `storyloom story show <campaign> <story>`.
//
// Persistent flags may come first, so the first positional token is located rather than
// assumed to be argv[1]. Unknown flags are skipped without consuming a value.
func rewriteStoryRefArgs(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--dir":       true,
		"--config":    true,
		"--format":    true,
		"--log-level": true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	rewrite := func(i int) []string {
		campaign, story, ok := splitStoryRef(argv[i])
		if !ok {
			return argv
		}
		out := make([]string, 0, len(argv)+3)
		out = append(out, argv[:i]...)
		out = append(out, "story", "show", campaign, story)
		out = append(out, argv[i+1:]...)
		return out
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) {
				return rewrite(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}
		return rewrite(i)
	}
	return argv
}

func main() {
	os.Args = rewriteStoryRefArgs(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
