// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package compose

import (
	"strings"
	"testing"
)

const mariadbCompose = `services:
  marzban:
    image: gozargah/marzban:latest
    restart: always
    env_file: .env
    # host networking keeps the panel reachable by haproxy
    network_mode: host
  mariadb:
    image: mariadb:lts
    restart: always
`

func TestDocument_DatabaseImage(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{mariadbCompose, ImageMariaDB},
		{"services:\n  marzban:\n    image: gozargah/marzban:dev\n  mysql:\n    image: mysql:lts\n", ImageMySQL},
		{"services:\n  marzban:\n    image: gozargah/marzban:latest\n", ""},
		{"services:\n  db:\n    image: docker.io/library/mariadb:11\n  app:\n    image: nginx\n", ImageMariaDB},
	}
	for _, c := range cases {
		content, want := c.content, c.want
		d, err := ParseDocument([]byte(content))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if got := d.DatabaseImage(); got != want {
			t.Errorf("expected %q, got %q for\n%s", want, got, content)
		}
	}
}

func TestDocument_SetImageTag(t *testing.T) {
	d, err := ParseDocument([]byte(mariadbCompose))
	if err != nil {
		t.Fatal(err)
	}
	if n := d.SetImageTag("gozargah/marzban", "v0.8.4"); n != 1 {
		t.Fatalf("expected one service retagged, got %d", n)
	}
	if got := d.ServiceImage("marzban"); got != "gozargah/marzban:v0.8.4" {
		t.Fatalf("unexpected image %q", got)
	}
	if got := d.ServiceImage("mariadb"); got != "mariadb:lts" {
		t.Fatalf("database image must be untouched, got %q", got)
	}

	out, err := d.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(out), "# host networking keeps the panel reachable by haproxy") {
		t.Fatalf("comments must survive a rewrite:\n%s", out)
	}
	if err := d.SetServiceImageTag("missing", "x"); err == nil {
		t.Fatalf("expected error for unknown service")
	}
}

func TestImageRepo(t *testing.T) {
	cases := map[string]string{
		"gozargah/marzban:latest":       "gozargah/marzban",
		"mariadb":                       "mariadb",
		"registry:5000/team/panel":      "registry:5000/team/panel",
		"registry:5000/team/panel:v1":   "registry:5000/team/panel",
		"mysql@sha256:0123456789abcdef": "mysql",
	}
	for in, want := range cases {
		if got := ImageRepo(in); got != want {
			t.Errorf("ImageRepo(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDocument_RejectsScalars(t *testing.T) {
	if _, err := ParseDocument([]byte("just a string")); err == nil {
		t.Fatalf("expected an error for non-mapping documents")
	}
}
