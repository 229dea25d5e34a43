// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

// Package assets renders the versioned file templates shipped inside the
// binary.
package assets

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

// Revision is bumped whenever a template changes shape.
const Revision = 3

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("assets").Option("missingkey=error").ParseFS(templateFS, "templates/*.tmpl"),
)

// Names of the embedded templates.
const (
	ComposeSQLite  = "compose-sqlite.yml.tmpl"
	ComposeMySQL   = "compose-mysql.yml.tmpl"
	ComposeMariaDB = "compose-mariadb.yml.tmpl"
	HAProxySNI     = "haproxy-sni.cfg.tmpl"
)

// ComposeData fills the compose templates.
type ComposeData struct {
	Revision     int
	Service      string
	Image        string
	DataDir      string
	MySQLDir     string
	Database     string
	DatabaseUser string
}

// HAProxyData fills the load balancer block.
type HAProxyData struct {
	Marker       string
	Name         string
	Domains      []string
	ListenPort   int
	PanelPort    int
	FallbackPort int
}

// Render executes the named template with data.
func Render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Compose renders the compose template for backend ("sqlite", "mysql" or
// "mariadb").
func Compose(backend string, data ComposeData) ([]byte, error) {
	data.Revision = Revision
	switch backend {
	case "sqlite":
		return Render(ComposeSQLite, data)
	case "mysql":
		return Render(ComposeMySQL, data)
	case "mariadb":
		return Render(ComposeMariaDB, data)
	}
	return nil, fmt.Errorf("no compose template for backend %q", backend)
}
