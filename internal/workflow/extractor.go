package workflow

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// blockState tracks membership of one indentation block. A block ends when a
// non-blank line's indentation falls to or below the recorded threshold.
type blockState struct {
	active bool
	indent int
}

func (b *blockState) enter(indent int) {
	b.active = true
	b.indent = indent
}

func (b *blockState) maybeExit(indent int) {
	if b.active && indent <= b.indent {
		b.active = false
	}
}

// ExtractLines walks one file's lines and yields a classified Reference for
// every `uses:` line, every `image:` line inside a container/services block,
// and every bare `container:` scalar.
func ExtractLines(file string, lines []string) []Reference {
	var refs []Reference
	var container, services blockState

	for i, raw := range lines {
		content := strings.TrimLeft(raw, " \t")
		if content == "" || strings.HasPrefix(content, "#") {
			// Blank and comment lines never terminate a block.
			continue
		}
		indent := len(raw) - len(content)

		container.maybeExit(indent)
		services.maybeExit(indent)

		key, value, ok := splitKeyValue(content)
		if !ok {
			continue
		}

		lineNo := i + 1
		switch key {
		case "uses":
			refs = append(refs, newReference(file, lineNo, KindAction, value))
		case "container":
			if value != "" {
				refs = append(refs, newReference(file, lineNo, KindContainerImage, value))
			} else {
				container.enter(indent)
			}
		case "services":
			if value == "" {
				services.enter(indent)
			}
		case "image":
			switch {
			case container.active && indent > container.indent:
				refs = append(refs, newReference(file, lineNo, KindContainerImage, value))
			case services.active && indent > services.indent:
				refs = append(refs, newReference(file, lineNo, KindServiceImage, value))
			}
		}
	}
	return refs
}

// ExtractFile reads path and extracts its references.
func ExtractFile(path string) ([]Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workflow %s: %w", path, err)
	}
	return ExtractLines(path, strings.Split(string(data), "\n")), nil
}

// ExtractDir extracts references from every .yml/.yaml file under dir.
// A missing directory is an operational error.
func ExtractDir(dir string) ([]Reference, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("workflow directory %s: %w", dir, ErrNoWorkflowDir)
	}
	if err != nil {
		return nil, fmt.Errorf("workflow directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workflow directory %s: not a directory", dir)
	}

	var refs []Reference
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yml" && ext != ".yaml" {
			return nil
		}
		fileRefs, fileErr := ExtractFile(path)
		if fileErr != nil {
			return fileErr
		}
		refs = append(refs, fileRefs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func newReference(file string, lineNo int, kind Kind, value string) Reference {
	return Reference{
		File:       file,
		LineNumber: lineNo,
		Kind:       kind,
		RawValue:   value,
		Status:     Classify(kind, value),
	}
}

// splitKeyValue parses a "key: value" line, stripping list-item dashes,
// surrounding quotes, and trailing comments. ok is false for lines that are
// not simple key/value pairs.
func splitKeyValue(content string) (key, value string, ok bool) {
	for strings.HasPrefix(content, "- ") {
		content = strings.TrimLeft(content[2:], " ")
	}
	colon := strings.Index(content, ":")
	if colon < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(content[:colon])
	if key == "" || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	value = strings.TrimSpace(content[colon+1:])
	value = stripComment(value)
	value = strings.Trim(value, `"'`)
	return key, value, true
}

// stripComment removes a trailing " #..." comment from an unquoted scalar.
func stripComment(value string) string {
	if strings.HasPrefix(value, "#") {
		return ""
	}
	if idx := strings.Index(value, " #"); idx >= 0 {
		return strings.TrimSpace(value[:idx])
	}
	return value
}

// Classify derives the pin status for a raw reference value.
// Actions are pinned iff the trailing @-suffix is exactly 40 hex characters;
// image references are pinned iff they carry an @sha256: digest; ./ and
// .github/ values are always exempt local paths.
func Classify(kind Kind, raw string) PinStatus {
	if raw == "" {
		return StatusMalformed
	}
	if strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, ".github/") {
		return StatusLocalPath
	}

	if kind != KindAction || strings.HasPrefix(raw, "docker://") {
		if strings.Contains(raw, "@sha256:") {
			return StatusPinned
		}
		return StatusFloatingTag
	}

	at := strings.LastIndex(raw, "@")
	if at < 0 {
		return StatusFloatingTag
	}
	suffix := raw[at+1:]
	if suffix == "" {
		return StatusMalformed
	}
	if IsFullSHA(suffix) {
		return StatusPinned
	}
	return StatusFloatingTag
}
