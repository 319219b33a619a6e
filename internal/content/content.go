// Package content holds the site records that internal link handlers look up:
// nodes, users and files.
package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("content not found")

// Node is a piece of site content addressable by id, title or alias.
type Node struct {
	ID    int    `yaml:"id" json:"id" validate:"required,gt=0"`
	Title string `yaml:"title" json:"title" validate:"required"`
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
	Alias string `yaml:"alias,omitempty" json:"alias,omitempty"`
}

// User is a site account.
type User struct {
	ID   int    `yaml:"id" json:"id" validate:"required,gt=0"`
	Name string `yaml:"name" json:"name" validate:"required"`
}

// File is an uploaded file.
type File struct {
	Name   string `yaml:"name" json:"name" validate:"required"`
	Scheme string `yaml:"scheme,omitempty" json:"scheme,omitempty" validate:"omitempty,oneof=public private"`
}

// Store looks up site content. Implementations return ErrNotFound when
// nothing matches.
type Store interface {
	NodeByTitle(ctx context.Context, title string, types []string) (*Node, error)
	NodeByID(ctx context.Context, id int) (*Node, error)
	NodeByAlias(ctx context.Context, alias string) (*Node, error)
	User(ctx context.Context, ref string) (*User, error)
	File(ctx context.Context, name string) (*File, error)
}

// Fixture is the serialized form of a content set.
type Fixture struct {
	Nodes []Node `yaml:"nodes" validate:"dive"`
	Users []User `yaml:"users" validate:"dive"`
	Files []File `yaml:"files" validate:"dive"`
}

var validate = validator.New()

// Validate checks field constraints and id uniqueness.
func (f *Fixture) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid content: %w", err)
	}
	seen := make(map[int]bool, len(f.Nodes))
	for _, n := range f.Nodes {
		if seen[n.ID] {
			return fmt.Errorf("invalid content: duplicate node id %d", n.ID)
		}
		seen[n.ID] = true
	}
	return nil
}

// LoadFixture reads a YAML content fixture.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates a YAML content fixture.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Memory is an immutable in-memory Store. It is safe for concurrent use.
type Memory struct {
	fixture Fixture
	byID    map[int]*Node
	byAlias map[string]*Node
}

// NewMemory indexes a fixture. A nil fixture yields an empty store.
func NewMemory(f *Fixture) *Memory {
	m := &Memory{
		byID:    make(map[int]*Node),
		byAlias: make(map[string]*Node),
	}
	if f == nil {
		return m
	}
	m.fixture = *f
	for i := range m.fixture.Nodes {
		n := &m.fixture.Nodes[i]
		m.byID[n.ID] = n
		if a := normalizeAlias(n.Alias); a != "" {
			m.byAlias[a] = n
		}
	}
	return m
}

// Fixture returns the records backing the store.
func (m *Memory) Fixture() Fixture {
	return m.fixture
}

// NodeByTitle matches titles case-insensitively. When types is non-empty only
// nodes of those types are considered. The first match in fixture order wins.
func (m *Memory) NodeByTitle(_ context.Context, title string, types []string) (*Node, error) {
	title = strings.TrimSpace(title)
	for i := range m.fixture.Nodes {
		n := &m.fixture.Nodes[i]
		if !strings.EqualFold(n.Title, title) {
			continue
		}
		if len(types) > 0 && !slices.Contains(types, n.Type) {
			continue
		}
		return n, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) NodeByID(_ context.Context, id int) (*Node, error) {
	if n, ok := m.byID[id]; ok {
		return n, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) NodeByAlias(_ context.Context, alias string) (*Node, error) {
	if n, ok := m.byAlias[normalizeAlias(alias)]; ok {
		return n, nil
	}
	return nil, ErrNotFound
}

// User resolves a numeric reference as an id and anything else as a name.
func (m *Memory) User(_ context.Context, ref string) (*User, error) {
	ref = strings.TrimSpace(ref)
	id, err := strconv.Atoi(ref)
	for i := range m.fixture.Users {
		u := &m.fixture.Users[i]
		if err == nil && u.ID == id {
			return u, nil
		}
		if err != nil && strings.EqualFold(u.Name, ref) {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) File(_ context.Context, name string) (*File, error) {
	name = strings.TrimSpace(name)
	for i := range m.fixture.Files {
		if m.fixture.Files[i].Name == name {
			return &m.fixture.Files[i], nil
		}
	}
	return nil, ErrNotFound
}

func normalizeAlias(alias string) string {
	return strings.Trim(strings.TrimSpace(alias), "/")
}
