// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package compose

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Database images recognised by DatabaseImage.
const (
	ImageMariaDB = "mariadb"
	ImageMySQL   = "mysql"
)

// Document is a compose file kept as a yaml.v3 node tree so edits preserve
// comments and key order.
type Document struct {
	root yaml.Node
}

// ParseDocument parses compose yaml.
func ParseDocument(data []byte) (*Document, error) {
	d := &Document{}
	if err := yaml.Unmarshal(data, &d.root); err != nil {
		return nil, fmt.Errorf("parse compose file: %w", err)
	}
	if d.root.Kind != yaml.DocumentNode || len(d.root.Content) == 0 || d.root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse compose file: top level is not a mapping")
	}
	return d, nil
}

// LoadDocument reads and parses the compose file at path.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(data)
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func (d *Document) services() *yaml.Node {
	return lookup(d.root.Content[0], "services")
}

// Services lists service names in file order.
func (d *Document) Services() []string {
	s := d.services()
	if s == nil || s.Kind != yaml.MappingNode {
		return nil
	}
	var names []string
	for i := 0; i < len(s.Content); i += 2 {
		names = append(names, s.Content[i].Value)
	}
	return names
}

// ServiceImage returns the image reference of service.
func (d *Document) ServiceImage(service string) string {
	img := lookup(lookup(d.services(), service), "image")
	if img == nil {
		return ""
	}
	return img.Value
}

// ImageRepo strips tag and digest from an image reference.
func ImageRepo(ref string) string {
	if i := strings.Index(ref, "@"); i >= 0 {
		ref = ref[:i]
	}
	if i := strings.LastIndex(ref, ":"); i >= 0 && !strings.Contains(ref[i:], "/") {
		ref = ref[:i]
	}
	return ref
}

// DatabaseImage returns "mariadb" or "mysql" when a service runs one of
// those images, checking MariaDB first, or "" otherwise.
func (d *Document) DatabaseImage() string {
	repos := map[string]bool{}
	for _, svc := range d.Services() {
		repo := ImageRepo(d.ServiceImage(svc))
		repo = repo[strings.LastIndex(repo, "/")+1:]
		repos[repo] = true
	}
	switch {
	case repos[ImageMariaDB]:
		return ImageMariaDB
	case repos[ImageMySQL]:
		return ImageMySQL
	}
	return ""
}

// SetServiceImageTag retags the image of service.
func (d *Document) SetServiceImageTag(service, tag string) error {
	img := lookup(lookup(d.services(), service), "image")
	if img == nil {
		return fmt.Errorf("service %q has no image", service)
	}
	img.Value = ImageRepo(img.Value) + ":" + tag
	return nil
}

// SetImageTag retags every service running repo and reports how many were
// changed.
func (d *Document) SetImageTag(repo, tag string) int {
	n := 0
	for _, svc := range d.Services() {
		if ImageRepo(d.ServiceImage(svc)) == repo {
			_ = d.SetServiceImageTag(svc, tag)
			n++
		}
	}
	return n
}

// Bytes renders the document with two-space indentation.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&d.root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders the document to path.
func (d *Document) WriteFile(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
