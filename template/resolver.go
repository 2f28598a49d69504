package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrTemplateNotFound is returned when no template directory holds the
// requested file.
var ErrTemplateNotFound = errors.New("template not found")

// InlinePrefix marks a template name whose remainder is the template text.
const InlinePrefix = "string:"

// Extension is appended to file-backed template names that lack it.
const Extension = ".tpl"

// Source is a loaded template.
type Source struct {
	Name   string // logical name as requested
	Path   string // resolved file, empty for inline templates
	Text   string
	Inline bool
}

// Resolver maps logical template names to files. Candidate directories
// are searched in order: the site directory, TemplateDir/DefaultDir and
// TemplateDir. Within each, NAME and MODULE/basename(NAME) are tried;
// finally NAME is tried as a plain path.
type Resolver struct {
	TemplateDir string
	DefaultDir  string
	SiteDir     string
	Module      string
}

// Folders returns the existing candidate directories in search order.
func (r *Resolver) Folders() []string {
	var folders []string
	if r.SiteDir != "" {
		folders = append(folders, r.SiteDir)
	}
	if r.DefaultDir != "" {
		folders = append(folders, filepath.Join(r.TemplateDir, r.DefaultDir), r.TemplateDir)
	} else if r.TemplateDir != "" {
		folders = append(folders, r.TemplateDir)
	}
	existing := folders[:0]
	for _, dir := range folders {
		if isDir(dir) {
			existing = append(existing, dir)
		}
	}
	return existing
}

// Find returns the path of the template file for name.
func (r *Resolver) Find(name string) (string, error) {
	name = withExtension(name)
	rel := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	for _, dir := range r.Folders() {
		if file := filepath.Join(dir, rel); isFile(file) {
			return file, nil
		}
		if r.Module != "" {
			if file := filepath.Join(dir, moduleDir(r.Module), filepath.Base(rel)); isFile(file) {
				return file, nil
			}
		}
	}
	if isFile(rel) {
		return filepath.Abs(rel)
	}
	return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// Load resolves name and reads the template. Names carrying InlinePrefix
// are returned without touching the filesystem.
func (r *Resolver) Load(name string) (*Source, error) {
	if text, ok := strings.CutPrefix(name, InlinePrefix); ok {
		return &Source{Name: name, Text: text, Inline: true}, nil
	}
	path, err := r.Find(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template: read %s: %w", path, err)
	}
	return &Source{Name: name, Path: path, Text: string(data)}, nil
}

func withExtension(name string) string {
	if strings.Contains(strings.ToLower(name), Extension) {
		return name
	}
	return name + Extension
}

// moduleDir turns a namespaced module name (Blog\Admin or Blog.Admin)
// into a relative directory.
func moduleDir(module string) string {
	module = strings.NewReplacer(`\`, "/", ".", "/").Replace(module)
	return filepath.FromSlash(strings.Trim(module, "/"))
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
