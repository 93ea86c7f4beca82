package permissions

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// target is a tool call as seen by rule matching.
type target struct {
	tool  string
	input map[string]any
	cwd   string
}

var pathKeys = []string{"file_path", "notebook_path", "path"}

// matches reports whether the rule applies to the call. A rule without
// content matches every invocation of its tool; "mcp__server" matches every
// tool of that server.
func (r PermissionRule) matches(call target) bool {
	if !toolMatches(r.ToolName, call.tool) {
		return false
	}
	if r.RuleContent == nil || *r.RuleContent == "" || *r.RuleContent == "*" {
		return true
	}
	content := *r.RuleContent
	switch call.tool {
	case "Bash":
		return commandMatches(content, stringField(call.input, "command"))
	case "WebFetch":
		if domain, ok := strings.CutPrefix(content, "domain:"); ok {
			return domainMatches(domain, stringField(call.input, "url"))
		}
	}
	if path := firstField(call.input, pathKeys...); path != "" {
		return pathMatches(content, path, call.cwd)
	}

	return content == firstField(call.input, "pattern", "url", "query", "prompt")
}

func toolMatches(ruleTool, tool string) bool {
	if ruleTool == tool {
		return true
	}
	if strings.HasPrefix(ruleTool, "mcp__") && strings.Count(ruleTool, "__") == 1 {
		return strings.HasPrefix(tool, ruleTool+"__")
	}

	return false
}

// commandMatches implements "prefix:*" rules and exact command rules.
func commandMatches(content, command string) bool {
	command = strings.TrimSpace(command)
	if prefix, ok := strings.CutSuffix(content, ":*"); ok {
		prefix = strings.TrimSpace(prefix)

		return command == prefix || strings.HasPrefix(command, prefix+" ")
	}

	return command == strings.TrimSpace(content)
}

func domainMatches(domain, raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(domain)

	return host == domain || strings.HasSuffix(host, "."+domain)
}

// pathMatches globs the cleaned path against pattern. Relative patterns
// are resolved against cwd; "**" crosses directory boundaries and "*" does
// not.
func pathMatches(pattern, path, cwd string) bool {
	if !filepath.IsAbs(pattern) && cwd != "" {
		pattern = filepath.Join(cwd, pattern)
	}
	if !filepath.IsAbs(path) && cwd != "" {
		path = filepath.Join(cwd, path)
	}
	re, err := regexp.Compile("^" + globToRegex(filepath.Clean(pattern)) + "$")
	if err != nil {
		return false
	}

	return re.MatchString(filepath.Clean(path))
}

func globToRegex(glob string) string {
	var b strings.Builder
	for i := 0; i < len(glob); i++ {
		switch glob[i] {
		case '*':
			switch {
			case strings.HasPrefix(glob[i:], "**/"):
				b.WriteString("(?:.*/)?")
				i += 2
			case strings.HasPrefix(glob[i:], "**"):
				b.WriteString(".*")
				i++
			default:
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '.', '+', '(', ')', '|', '^', '$', '{', '}', '[', ']', '\\':
			b.WriteString("\\")
			b.WriteByte(glob[i])
		default:
			b.WriteByte(glob[i])
		}
	}

	return b.String()
}

func stringField(input map[string]any, key string) string {
	s, _ := input[key].(string)

	return s
}

func firstField(input map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := strings.TrimSpace(stringField(input, key)); s != "" {
			return s
		}
	}

	return ""
}
