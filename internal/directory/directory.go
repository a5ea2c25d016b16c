// Package directory holds the static mapping from entitlement names to the
// Telegram groups they grant access to. The mapping is loaded once at
// startup and never mutated.
package directory

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Group is the invite link and chat id of one managed group
type Group struct {
	InviteLink string `yaml:"invite_link"`
	ChatID     int64  `yaml:"chat_id"`
}

// Directory maps entitlement names to their groups
type Directory struct {
	groups map[string]Group
}

// file is the on-disk shape of the directory
type file struct {
	Groups map[string]Group `yaml:"groups"`
}

// New creates a directory from an explicit mapping
func New(groups map[string]Group) *Directory {
	d := &Directory{groups: make(map[string]Group, len(groups))}
	for name, group := range groups {
		d.groups[name] = group
	}
	return d
}

// Load reads the directory from a YAML file
func Load(path string) (*Directory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read group directory: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse group directory: %w", err)
	}
	if len(f.Groups) == 0 {
		return nil, fmt.Errorf("group directory '%s' defines no groups", path)
	}

	for name, group := range f.Groups {
		if group.ChatID == 0 {
			return nil, fmt.Errorf("group '%s' is missing a chat_id", name)
		}
		if group.InviteLink == "" {
			return nil, fmt.Errorf("group '%s' is missing an invite_link", name)
		}
	}

	return New(f.Groups), nil
}

// Lookup resolves an entitlement name to its group
func (d *Directory) Lookup(entitlement string) (Group, bool) {
	group, ok := d.groups[entitlement]
	return group, ok
}

// Names returns the configured entitlement names, sorted
func (d *Directory) Names() []string {
	names := make([]string, 0, len(d.groups))
	for name := range d.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
