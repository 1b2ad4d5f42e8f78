package sandbox

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// skipDirs are never descended into by glob/grep, regardless of pattern.
// Grounded on lowkaihon-cli-coding-agent/tools/walk.go's skipDirs map.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	".cache":       true,
	"dist":         true,
	"build":        true,
}

const maxGlobResults = 100
const maxGrepResults = 50

func shouldSkipDir(name string) bool {
	return skipDirs[name]
}

// GlobRequest is the glob(pattern, path?) tool call.
type GlobRequest struct {
	Pattern string
	Path    string
}

// Glob returns up to maxGlobResults relative paths matching pattern,
// rooted at Path (or the project root). Supports `**` the way
// lowkaihon-cli-coding-agent's matchDoublestar does.
func (s *Sandbox) Glob(req GlobRequest) (string, error) {
	if req.Pattern == "" {
		return "", fmt.Errorf("pattern must not be empty")
	}
	root, err := s.searchRoot(req.Path)
	if err != nil {
		return "", err
	}

	var matches []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			if d.Type()&os.ModeSymlink != 0 {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if matched, _ := matchGlob(req.Pattern, rel); matched {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return "No files matched the pattern.", nil
	}

	limit := len(matches)
	truncated := false
	if limit > maxGlobResults {
		limit = maxGlobResults
		truncated = true
	}
	var out strings.Builder
	for _, m := range matches[:limit] {
		out.WriteString(m)
		out.WriteByte('\n')
	}
	if truncated {
		fmt.Fprintf(&out, "\n... and %d more matches", len(matches)-maxGlobResults)
	}
	return out.String(), nil
}

// GrepRequest is the grep(pattern, path?, include?) tool call.
type GrepRequest struct {
	Pattern string
	Path    string
	Include string
}

// Grep searches file contents for an RE2 pattern, up to maxGrepResults
// matches, skipping binary files and directories in skipDirs. A regex
// compile failure returns the literal string "Invalid regex", per
// spec.md §4.1 — the caller sees it as a tool result, not an error.
func (s *Sandbox) Grep(req GrepRequest) (string, error) {
	if req.Pattern == "" {
		return "", fmt.Errorf("pattern must not be empty")
	}
	re, err := regexp.Compile(req.Pattern)
	if err != nil {
		return "Invalid regex", nil
	}

	root, err := s.searchRoot(req.Path)
	if err != nil {
		return "", err
	}

	var results []string
	total := 0
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if req.Include != "" {
			if matched, _ := filepath.Match(req.Include, d.Name()); !matched {
				return nil
			}
		}
		if isBinaryFile(path) {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return nil // unreadable files silently skipped
		}
		defer f.Close()

		rel, _ := filepath.Rel(root, path)
		rel = filepath.ToSlash(rel)

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 256*1024), 256*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Text()
			if re.MatchString(line) {
				total++
				if len(results) < maxGrepResults {
					results = append(results, fmt.Sprintf("%s:%d: %s", rel, lineNum, previewLine(line, 200)))
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(results) == 0 {
		return "No matches found.", nil
	}
	var out strings.Builder
	for _, r := range results {
		out.WriteString(r)
		out.WriteByte('\n')
	}
	if total > maxGrepResults {
		fmt.Fprintf(&out, "\n... and %d more matches", total-maxGrepResults)
	}
	return out.String(), nil
}

// searchRoot resolves an optional sub-path within the project root for
// glob/grep, defaulting to the first allowed prefix.
func (s *Sandbox) searchRoot(path string) (string, error) {
	if path == "" {
		if len(s.policy.AllowedPathPrefixes) == 0 {
			return "", fmt.Errorf("no project root configured")
		}
		return s.policy.AllowedPathPrefixes[0], nil
	}
	return resolvePath(s.policy.AllowedPathPrefixes, path)
}

func previewLine(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return true
	}
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

// matchGlob performs glob matching supporting `**` for recursive
// directory matching. Grounded on lowkaihon-cli-coding-agent's
// matchGlob/matchDoublestar.
func matchGlob(pattern, name string) (bool, error) {
	if strings.Contains(pattern, "**") {
		return matchDoublestar(pattern, name)
	}
	return filepath.Match(pattern, name)
}

func matchDoublestar(pattern, name string) (bool, error) {
	parts := strings.Split(pattern, "**")
	if len(parts) != 2 {
		return filepath.Match(pattern, name)
	}

	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")

	if prefix == "" && suffix == "" {
		return true, nil
	}
	if prefix == "" {
		segments := strings.Split(name, "/")
		for i := range segments {
			subpath := strings.Join(segments[i:], "/")
			if matched, _ := filepath.Match(suffix, subpath); matched {
				return true, nil
			}
			if matched, _ := filepath.Match(suffix, segments[len(segments)-1]); matched {
				return true, nil
			}
		}
		return false, nil
	}
	if suffix == "" {
		return strings.HasPrefix(name, prefix+"/") || name == prefix, nil
	}
	if !strings.HasPrefix(name, prefix+"/") && name != prefix {
		return false, nil
	}
	rest := strings.TrimPrefix(name, prefix+"/")
	return matchDoublestar("**/"+suffix, rest)
}
