// Package skills loads reusable instruction documents from the
// workspace. Each skill is a directory containing a SKILL.md whose YAML
// frontmatter names and describes it.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"leo/internal/logging"
)

// Skill is one loaded skill document.
type Skill struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Path is the location of the SKILL.md file.
	Path string `yaml:"-"`
}

// Registry holds the skills discovered in a workspace.
type Registry struct {
	skills []Skill
}

// LoadDir scans dir for skill directories. A missing dir yields an
// empty registry, not an error.
func LoadDir(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{}, nil
		}
		return nil, fmt.Errorf("failed to read skills directory: %w", err)
	}

	reg := &Registry{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name(), "SKILL.md")
		skill, err := parseSkillFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			// A broken skill should not take the assistant down.
			logging.Warn("skipping invalid skill", "path", path, "error", err)
			continue
		}
		if skill.Name == "" {
			skill.Name = entry.Name()
		}
		reg.skills = append(reg.skills, skill)
	}
	return reg, nil
}

// parseSkillFile reads a SKILL.md and extracts its YAML frontmatter.
func parseSkillFile(path string) (Skill, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Skill{}, err
	}

	front, _, found := splitFrontmatter(string(data))
	if !found {
		return Skill{}, fmt.Errorf("missing frontmatter in %s", path)
	}

	var skill Skill
	if err := yaml.Unmarshal([]byte(front), &skill); err != nil {
		return Skill{}, fmt.Errorf("invalid frontmatter in %s: %w", path, err)
	}
	skill.Path = path
	return skill, nil
}

// splitFrontmatter splits a document into its YAML frontmatter and body.
func splitFrontmatter(content string) (front, body string, found bool) {
	if !strings.HasPrefix(content, "---\n") {
		return "", content, false
	}
	rest := strings.TrimPrefix(content, "---\n")
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", content, false
	}
	front = rest[:idx]
	body = strings.TrimLeft(rest[idx+len("\n---"):], "\n")
	return front, body, true
}

// Skills returns the loaded skills.
func (r *Registry) Skills() []Skill {
	return r.skills
}

// Body returns the instruction text of the named skill, without frontmatter.
func (r *Registry) Body(name string) (string, error) {
	for _, s := range r.skills {
		if s.Name == name {
			data, err := os.ReadFile(s.Path)
			if err != nil {
				return "", err
			}
			_, body, _ := splitFrontmatter(string(data))
			return body, nil
		}
	}
	return "", fmt.Errorf("unknown skill: %s", name)
}

// BuildSummary returns the skill list injected into the system prompt,
// or "" when no skills are loaded.
func (r *Registry) BuildSummary() string {
	if len(r.skills) == 0 {
		return ""
	}
	var b strings.Builder
	for _, s := range r.skills {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	return strings.TrimRight(b.String(), "\n")
}
