package substitute

import (
	"path/filepath"
	"regexp"
	"strings"
)

// placeholder is one recognized token pattern; handlers return the
// replacement and whether it resolved (false means "leave as-is, no default
// and no value available").
type placeholder struct {
	pattern *regexp.Regexp
	handler func(match []string, ctx Context) (string, bool)
}

// registry lists recognized placeholders, most specific first so a pattern
// with a colon-qualified namespace (localEnv, containerEnv) is tried before
// any broader catch-all would be.
var registry = []placeholder{
	{
		pattern: regexp.MustCompile(`\$\{localEnv:([^}:]+)(?::([^}]*))?\}`),
		handler: handleLocalEnv,
	},
	{
		pattern: regexp.MustCompile(`\$\{containerEnv:([^}:]+)(?::([^}]*))?\}`),
		handler: handleContainerEnv,
	},
	{
		pattern: regexp.MustCompile(`\$\{localWorkspaceFolderBasename\}`),
		handler: handleLocalWorkspaceFolderBasename,
	},
	{
		pattern: regexp.MustCompile(`\$\{localWorkspaceFolder\}`),
		handler: handleLocalWorkspaceFolder,
	},
	{
		pattern: regexp.MustCompile(`\$\{containerWorkspaceFolder\}`),
		handler: handleContainerWorkspaceFolder,
	},
}

func handleLocalEnv(match []string, ctx Context) (string, bool) {
	name := match[1]
	if ctx.LocalEnv != nil {
		if v, ok := ctx.LocalEnv(name); ok {
			return v, true
		}
	}
	if len(match) >= 3 && match[2] != "" {
		return match[2], true
	}
	return "", false
}

func handleContainerEnv(match []string, ctx Context) (string, bool) {
	name := match[1]
	if v, ok := ctx.ContainerEnv[name]; ok {
		return v, true
	}
	if len(match) >= 3 && match[2] != "" {
		return match[2], true
	}
	return "", false
}

func handleLocalWorkspaceFolder(_ []string, ctx Context) (string, bool) {
	if ctx.LocalWorkspaceFolder == "" {
		return "", false
	}
	return ctx.LocalWorkspaceFolder, true
}

func handleLocalWorkspaceFolderBasename(_ []string, ctx Context) (string, bool) {
	if ctx.LocalWorkspaceFolder == "" {
		return "", false
	}
	return filepath.Base(ctx.LocalWorkspaceFolder), true
}

func handleContainerWorkspaceFolder(_ []string, ctx Context) (string, bool) {
	if ctx.ContainerWorkspaceFolder == "" {
		return "", false
	}
	return ctx.ContainerWorkspaceFolder, true
}

// substituteString applies every registry entry to s exactly once (a single
// left-to-right pass per pattern), recording each hit in report. The "${" of
// each replacement value is masked until every pattern has run, so a later
// pattern never re-scans a replacement's own output.
func substituteString(s string, ctx Context, report *Report) string {
	for _, p := range registry {
		s = p.pattern.ReplaceAllStringFunc(s, func(token string) string {
			parts := p.pattern.FindStringSubmatch(token)
			value, ok := p.handler(parts, ctx)
			if !ok {
				report.recordUnresolved(token)
				return token
			}
			report.recordResolved(token, value)
			return strings.ReplaceAll(value, "${", "\x00{")
		})
	}
	return strings.ReplaceAll(s, "\x00{", "${")
}
