// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package envfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `# Marzban settings
UVICORN_HOST = "0.0.0.0"
UVICORN_PORT = 8000
# UVICORN_SSL_CERTFILE = "/var/lib/marzban/certs/example.com.cert"
SQLALCHEMY_DATABASE_URL = "sqlite:////var/lib/marzban/db.sqlite3"
# a free-form comment without assignment
`

func mustParse(t *testing.T, s string) *File {
	t.Helper()
	f, err := Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return f
}

func TestParse_GetStripsQuotes(t *testing.T) {
	f := mustParse(t, sample)
	if v, ok := f.Get("UVICORN_HOST"); !ok || v != "0.0.0.0" {
		t.Fatalf("expected unquoted host, got %q %v", v, ok)
	}
	if _, ok := f.Get("UVICORN_SSL_CERTFILE"); ok {
		t.Fatalf("commented assignment must not be authoritative")
	}
	if got := f.Map()["UVICORN_PORT"]; got != "8000" {
		t.Fatalf("expected 8000, got %q", got)
	}
	if string(f.Bytes()) != sample {
		t.Fatalf("untouched file must round-trip byte for byte:\n%s", f.Bytes())
	}
}

func TestSet_IsIdempotent(t *testing.T) {
	cases := map[string]string{
		"present":   "UVICORN_PORT",
		"commented": "UVICORN_SSL_CERTFILE",
		"absent":    "XRAY_SUBSCRIPTION_URL_PREFIX",
	}
	for name, key := range cases {
		t.Run(name, func(t *testing.T) {
			f := mustParse(t, sample)
			f.Set(key, "https://panel.example.com")
			once := string(f.Bytes())
			f.Set(key, "https://panel.example.com")
			twice := string(f.Bytes())

			if once != twice {
				t.Fatalf("second Set changed the file:\n%s\n---\n%s", once, twice)
			}
			if n := f.Count(key); n != 1 {
				t.Fatalf("expected exactly one line for %s, got %d", key, n)
			}
			if v, _ := f.Get(key); v != "https://panel.example.com" {
				t.Fatalf("unexpected value %q", v)
			}
		})
	}
}

func TestSet_CollapsesDuplicatesAtFirstPosition(t *testing.T) {
	f := mustParse(t, "A=1\n#B=old\nC=3\nB=2\nB = 4\n")
	f.Set("B", "5")
	want := "A=1\nB = 5\nC=3\n"
	if got := string(f.Bytes()); got != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestFormat_Quoting(t *testing.T) {
	cases := map[string]string{
		"8000":                  "K = 8000",
		"":                      `K = ""`,
		"two words":             `K = "two words"`,
		"has#hash":              `K = "has#hash"`,
		`say "hi"`:              `K = 'say "hi"'`,
		"sqlite:////var/lib/db": "K = sqlite:////var/lib/db",
	}
	for in, want := range cases {
		if got := Format("K", in); got != want {
			t.Errorf("Format(%q) = %q, want %q", in, got, want)
		}
		if v := parseLine(Format("K", in)).value; v != in {
			t.Errorf("value %q did not survive a parse, got %q", in, v)
		}
	}
}

func TestUnset_KeepsComments(t *testing.T) {
	f := mustParse(t, "BACKUP_SERVICE_ENABLED=true\n# BACKUP_CRON_SCHEDULE=old\nBACKUP_CRON_SCHEDULE=\"0 * * * *\"\nOTHER=1\n")
	f.Unset(BackupServiceKeys...)
	want := "# BACKUP_CRON_SCHEDULE=old\nOTHER=1\n"
	if got := string(f.Bytes()); got != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestUpdateAndRemove_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(sample), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := Update(path, map[string]string{"UVICORN_PORT": "8443", "NEW_KEY": "x"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := f.Get("UVICORN_PORT"); v != "8443" {
		t.Fatalf("expected updated port, got %q", v)
	}
	fi, _ := os.Stat(path)
	if fi.Mode().Perm() != 0o640 {
		t.Fatalf("file mode must be preserved, got %v", fi.Mode().Perm())
	}

	if err := Remove(path, "NEW_KEY"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	f, _ = Load(path)
	if _, ok := f.Get("NEW_KEY"); ok {
		t.Fatalf("NEW_KEY should be gone")
	}

	if err := Update(path, map[string]string{"1BAD": "x"}); err == nil {
		t.Fatalf("expected invalid key to be rejected")
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ".env"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadInto_LogsMalformedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nMYSQL_ROOT_PASSWORD = \"s3cret\"\n1INVALID=x\nBAD-KEY=y\nMYSQL_DATABASE=marzban\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	exported := map[string]string{}
	var logged []string
	vars, err := LoadInto(path,
		func(k, v string) error { exported[k] = v; return nil },
		func(format string, args ...any) { logged = append(logged, args[0].(string)) },
	)
	if err != nil {
		t.Fatalf("LoadInto: %v", err)
	}
	if exported["MYSQL_ROOT_PASSWORD"] != "s3cret" || vars["MYSQL_DATABASE"] != "marzban" {
		t.Fatalf("unexpected exports: %v", exported)
	}
	if len(vars) != 2 {
		t.Fatalf("expected 2 valid keys, got %v", vars)
	}
	if strings.Join(logged, ",") != "1INVALID,BAD-KEY" {
		t.Fatalf("expected malformed keys to be logged, got %v", logged)
	}
}
