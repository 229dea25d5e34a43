// Copyright (c) 2026 Panelctl Team
// Panelctl - proxy panel lifecycle manager
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/toeirei/panelctl/internal/acme"
	"github.com/toeirei/panelctl/internal/envfile"
	"github.com/toeirei/panelctl/internal/haproxy"
	"github.com/toeirei/panelctl/internal/i18n"
	"github.com/toeirei/panelctl/internal/logging"
	"github.com/toeirei/panelctl/internal/shell"
)

// ACMEInstallURL serves the acme.sh online installer.
const ACMEInstallURL = "https://get.acme.sh"

// PanelBindHost is where the panel listens behind the load balancer.
const PanelBindHost = "127.0.0.1"

// SSLOptions are the inputs of RunSSLCertCmd. Empty fields are prompted for.
type SSLOptions struct {
	Domains  string
	Mode     string
	Provider string
	Email    string
}

// SSLResult records what RunSSLCertCmd did.
type SSLResult struct {
	Domains  []string
	Mode     acme.Mode
	Requests []acme.CertificateRequest
	Pairs    []acme.InstalledPair
	// Cleared holds the outcome of the best-effort revoke and remove calls.
	Cleared        []shell.AttemptResult
	HAProxyUpdated bool
}

// RunSSLCertCmd collects domains and a strategy, issues and installs the
// certificates, then points the panel and the load balancer at them. An
// issuance failure aborts without cleaning up earlier requests.
func RunSSLCertCmd(ctx context.Context, s *Services, opts SSLOptions) (SSLResult, error) {
	var res SSLResult
	if err := s.RequireInstalled(); err != nil {
		return res, err
	}

	domains := acme.ParseDomains(opts.Domains)
	for len(domains) == 0 {
		answer := s.Prompt.AskRequired(i18n.T("ssl.prompt_domains"))
		if answer == "" {
			return res, ErrAborted
		}
		domains = acme.ParseDomains(answer)
	}
	res.Domains = domains

	modeName := opts.Mode
	if modeName == "" {
		modeName = s.Prompt.Choose(i18n.T("ssl.prompt_mode"), []string{acme.Standard.String(), acme.Wildcard.String()}, acme.Standard.String())
	}
	mode, err := acme.ParseMode(modeName)
	if err != nil {
		return res, err
	}
	res.Mode = mode
	res.Requests = acme.Plan(domains, mode)
	for _, req := range res.Requests {
		s.Out.Info("%s", i18n.T("ssl.planned", req.Name, strings.Join(req.Domains, ", ")))
	}

	issue := acme.IssueOptions{Mode: mode}
	if mode == acme.Wildcard {
		provider, creds, err := dnsCredentials(s, opts.Provider)
		if err != nil {
			return res, err
		}
		issue.Provider, issue.Credentials = provider, creds
	} else {
		ensurePackage(ctx, s, "socat", "socat")
	}

	client := &acme.Client{
		Runner: s.Runner,
		Home:   s.Settings.ACME.Home,
		Server: s.Settings.ACME.Server,
		Out:    s.Stdout,
	}
	if !client.Installed() {
		if err := installACME(ctx, s, client, opts.Email); err != nil {
			return res, err
		}
	}

	for _, req := range res.Requests {
		res.Cleared = append(res.Cleared, client.Clear(ctx, req)...)
		if err := client.Issue(ctx, req, issue); err != nil {
			return res, err
		}
		pair, err := client.InstallCert(ctx, req, s.Paths.CertsDir)
		if err != nil {
			return res, err
		}
		res.Pairs = append(res.Pairs, pair)
		s.Out.Success("%s", i18n.T("ssl.installed", req.Name, pair.Dir))
	}
	for _, a := range res.Cleared {
		if a.Ignored() {
			logging.Debugf("ignored: %s: %v", a.Cmd, a.Err)
		}
	}

	primary := res.Pairs[0]
	err = envfile.Update(s.Paths.EnvFile, map[string]string{
		envfile.UvicornPort:               fmt.Sprint(s.Settings.Panel.Port),
		envfile.UvicornHost:               PanelBindHost,
		envfile.UvicornSSLCertFile:        primary.FullChain,
		envfile.UvicornSSLKeyFile:         primary.PrivKey,
		envfile.XraySubscriptionURLPrefix: "https://" + domains[0],
	})
	if err != nil {
		return res, err
	}
	s.Out.Success("%s", i18n.T("ssl.env_updated", s.Paths.EnvFile))

	updated, err := configureHAProxy(ctx, s, domains)
	if err != nil {
		return res, err
	}
	res.HAProxyUpdated = updated

	if p, err := s.Project(ctx); err == nil && p.IsUp(ctx) {
		if err := p.Restart(ctx); err != nil {
			return res, err
		}
	}
	return res, nil
}

func dnsCredentials(s *Services, name string) (acme.DNSProvider, map[string]string, error) {
	if name == "" {
		names := acme.ProviderNames()
		name = s.Prompt.Choose(i18n.T("ssl.prompt_provider"), names, names[0])
	}
	provider, err := acme.ProviderByName(name)
	if err != nil {
		return provider, nil, err
	}
	creds := map[string]string{}
	for _, c := range provider.Credentials {
		v := s.getenv(c.Env)
		if v == "" && c.Secret {
			v, err = s.Prompt.Secret(c.Label)
			if err != nil {
				return provider, nil, err
			}
		} else if v == "" {
			v = s.Prompt.AskRequired(c.Label)
		}
		if v == "" {
			return provider, nil, fmt.Errorf("%s is required for %s", c.Env, provider.Name)
		}
		creds[c.Env] = v
	}
	return provider, creds, nil
}

func installACME(ctx context.Context, s *Services, client *acme.Client, email string) error {
	if email == "" {
		email = s.Settings.ACME.Email
	}
	if email == "" {
		email = s.Prompt.Ask(i18n.T("ssl.prompt_email"), "")
	}
	script, err := s.Releases.Fetch(ctx, ACMEInstallURL)
	if err != nil {
		return fmt.Errorf("fetch acme.sh installer: %w", err)
	}
	s.Out.Info("%s", i18n.T("ssl.acme_installing"))
	return client.Install(ctx, script, email)
}

// ensurePackage installs pkg when binary is missing. Failures are logged;
// the step that needs the binary reports the real error.
func ensurePackage(ctx context.Context, s *Services, binary, pkg string) {
	inst, err := s.Installer(ctx)
	if err != nil {
		logging.Debugf("cannot install %s: %v", pkg, err)
		return
	}
	if err := inst.Ensure(ctx, binary, pkg); err != nil {
		logging.Warnf("install %s: %v", pkg, err)
	}
}

// configureHAProxy adds the SNI router block once and reloads haproxy when
// the file changed.
func configureHAProxy(ctx context.Context, s *Services, domains []string) (bool, error) {
	ensurePackage(ctx, s, "haproxy", "haproxy")
	path := s.Settings.HAProxy.Config
	written, err := haproxy.Ensure(path, haproxy.Block{
		AppName:      s.Paths.AppName,
		Domains:      domains,
		PanelPort:    s.Settings.Panel.Port,
		FallbackPort: s.Settings.HAProxy.FallbackPort,
	})
	if err != nil {
		return false, err
	}
	if !written {
		s.Out.Hint("%s", i18n.T("ssl.haproxy_unchanged", path))
		return false, nil
	}
	if err := haproxy.Validate(ctx, s.Runner, path); err != nil {
		return true, err
	}
	if err := haproxy.Restart(ctx, s.Runner); err != nil {
		return true, err
	}
	s.Out.Success("%s", i18n.T("ssl.haproxy_updated", path))
	return true, nil
}
