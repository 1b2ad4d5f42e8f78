package sandbox

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const defaultMaxReadLines = 2000

// resolvePath jails requestedPath to the first matching entry in
// allowedPrefixes. Grounded on lowkaihon-cli-coding-agent's ValidatePath,
// extended with symlink canonicalization (filepath.EvalSymlinks) so a
// symlink inside the project root cannot point an agent outside it —
// ValidatePath alone only checks the lexical path, not where it resolves.
func resolvePath(allowedPrefixes []string, requestedPath string) (string, error) {
	if requestedPath == "" {
		return "", fmt.Errorf("path must not be empty")
	}

	var candidate string
	if filepath.IsAbs(requestedPath) {
		candidate = filepath.Clean(requestedPath)
	} else if len(allowedPrefixes) > 0 {
		candidate = filepath.Clean(filepath.Join(allowedPrefixes[0], requestedPath))
	} else {
		return "", fmt.Errorf("path %q is relative but no project root is configured", requestedPath)
	}

	if !withinAny(candidate, allowedPrefixes) {
		return "", blocked("path %q is outside the allowed project root(s)", requestedPath)
	}

	// If the path (or its nearest existing ancestor) resolves through a
	// symlink to somewhere outside the jail, reject it.
	resolved, err := resolveExisting(candidate)
	if err == nil && !withinAny(resolved, allowedPrefixes) {
		return "", blocked("path %q resolves outside the allowed project root(s)", requestedPath)
	}

	return candidate, nil
}

func withinAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		prefix = filepath.Clean(prefix)
		if path == prefix {
			return true
		}
		rel, err := filepath.Rel(prefix, path)
		if err == nil && !strings.HasPrefix(rel, "..") && rel != ".." {
			return true
		}
	}
	return false
}

// resolveExisting walks up from path until it finds an existing entry,
// evaluates symlinks on that entry, then re-appends the non-existent
// suffix (relevant for write/edit targets that don't exist yet).
func resolveExisting(path string) (string, error) {
	suffix := ""
	cur := path
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("no existing ancestor for %q", path)
		}
		suffix = filepath.Join(filepath.Base(cur), suffix)
		cur = parent
	}
}

// ReadRequest is the read(path, offset?, limit?) tool call.
type ReadRequest struct {
	Path   string
	Offset int // 1-indexed first line to return; <= 0 means 1
	Limit  int // max lines to return; <= 0 means defaultMaxReadLines
}

// Read returns the file's lines, 1-indexed and prefixed the way
// lowkaihon-cli-coding-agent's readTool formats them ("%4d │ %s").
func (s *Sandbox) Read(req ReadRequest) (string, error) {
	absPath, err := resolvePath(s.policy.AllowedPathPrefixes, req.Path)
	if err != nil {
		return "", err
	}

	f, err := os.Open(absPath)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	start := req.Offset
	if start <= 0 {
		start = 1
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultMaxReadLines
	}

	var out strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 256*1024)

	lineNum, shown, total := 0, 0, 0
	for scanner.Scan() {
		lineNum++
		total = lineNum
		if lineNum < start {
			continue
		}
		if shown >= limit {
			continue // keep counting total lines
		}
		shown++
		fmt.Fprintf(&out, "%4d │ %s\n", lineNum, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}

	if out.Len() == 0 {
		return "File is empty.", nil
	}
	if total > start+shown-1 {
		fmt.Fprintf(&out, "\n... (file has %d total lines, showing %d-%d. Use offset/limit to read more.)",
			total, start, start+shown-1)
	}
	return out.String(), nil
}

// WriteRequest is the write(path, content) tool call.
type WriteRequest struct {
	Path    string
	Content string
}

// Write creates or overwrites a file, creating parent directories as
// needed (spec.md §4.1: "parent-dir auto-create on write").
func (s *Sandbox) Write(req WriteRequest) (string, error) {
	absPath, err := resolvePath(s.policy.AllowedPathPrefixes, req.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(req.Content), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(req.Content), req.Path), nil
}

// EditRequest is the edit(path, old, new, replaceAll?) tool call.
type EditRequest struct {
	Path       string
	Old        string
	New        string
	ReplaceAll bool
}

// Edit replaces an exact substring match of Old with New. Fails if Old
// is not found, or — unless ReplaceAll is set — if it is ambiguous
// (appears more than once), matching the "exact-substring edit" rule
// in spec.md §4.1.
func (s *Sandbox) Edit(req EditRequest) (string, error) {
	absPath, err := resolvePath(s.policy.AllowedPathPrefixes, req.Path)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	content := string(raw)

	count := strings.Count(content, req.Old)
	if count == 0 {
		return "", fmt.Errorf("old text not found in %s", req.Path)
	}
	if count > 1 && !req.ReplaceAll {
		return "", fmt.Errorf("old text is ambiguous in %s: %d matches found (set replaceAll to replace all)", req.Path, count)
	}

	var updated string
	if req.ReplaceAll {
		updated = strings.ReplaceAll(content, req.Old, req.New)
	} else {
		updated = strings.Replace(content, req.Old, req.New, 1)
	}

	if err := os.WriteFile(absPath, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if req.ReplaceAll {
		return fmt.Sprintf("replaced %d occurrence(s) in %s", count, req.Path), nil
	}
	return fmt.Sprintf("replaced 1 occurrence in %s", req.Path), nil
}
