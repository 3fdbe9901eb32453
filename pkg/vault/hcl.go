package vault

import (
	"fmt"
	"sort"
	"strings"
)

// Capability names accepted by Vault ACL policies, in the order they are
// rendered.
var capabilityOrder = []string{"create", "read", "update", "patch", "delete", "list", "sudo", "deny"}

// PolicyRule represents a single rule in a Vault policy
type PolicyRule struct {
	Path         string
	Capabilities []string
	Description  string
}

// RulesFromCapabilities turns a path -> capabilities mapping into rules, one
// per path. Paths are sorted and capabilities deduplicated so the same
// mapping always renders the same document.
func RulesFromCapabilities(capabilities map[string][]string) []PolicyRule {
	paths := make([]string, 0, len(capabilities))
	for path := range capabilities {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	rules := make([]PolicyRule, 0, len(paths))
	for _, path := range paths {
		rules = append(rules, PolicyRule{
			Path:         path,
			Capabilities: canonicalCapabilities(capabilities[path]),
		})
	}
	return rules
}

// GeneratePolicyHCL generates an HCL policy document from rules
func GeneratePolicyHCL(rules []PolicyRule, name string) string {
	var builder strings.Builder

	builder.WriteString("# Vault policy managed by vault-setup\n")
	fmt.Fprintf(&builder, "# Policy: %s\n", name)

	for _, rule := range rules {
		builder.WriteString("\n")

		if rule.Description != "" {
			fmt.Fprintf(&builder, "# %s\n", rule.Description)
		}

		fmt.Fprintf(&builder, "path %q {\n", rule.Path)

		caps := make([]string, len(rule.Capabilities))
		for j, cap := range rule.Capabilities {
			caps[j] = fmt.Sprintf("%q", cap)
		}
		fmt.Fprintf(&builder, "  capabilities = [%s]\n", strings.Join(caps, ", "))

		builder.WriteString("}\n")
	}

	return builder.String()
}

// ValidateCapabilities checks if all capabilities are valid
func ValidateCapabilities(capabilities []string) error {
	validCaps := make(map[string]bool, len(capabilityOrder))
	for _, c := range capabilityOrder {
		validCaps[c] = true
	}

	hasDeny := false
	for _, cap := range capabilities {
		if !validCaps[cap] {
			return fmt.Errorf("invalid capability: %s", cap)
		}
		if cap == "deny" {
			hasDeny = true
		}
	}

	// deny cannot be combined with other capabilities
	if hasDeny && len(canonicalCapabilities(capabilities)) > 1 {
		return fmt.Errorf("'deny' capability cannot be combined with other capabilities")
	}

	return nil
}

// ValidatePath checks if a path is valid
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if strings.Contains(path, "..") {
		return fmt.Errorf("path cannot contain '..'")
	}

	if strings.ContainsAny(path, "\"\n") {
		return fmt.Errorf("path cannot contain quotes or newlines")
	}

	return nil
}

// canonicalCapabilities deduplicates capabilities and orders them the way
// Vault documents them. Unknown names keep their relative order at the end.
func canonicalCapabilities(capabilities []string) []string {
	seen := make(map[string]bool, len(capabilities))
	for _, c := range capabilities {
		seen[c] = true
	}

	out := make([]string, 0, len(seen))
	for _, c := range capabilityOrder {
		if seen[c] {
			out = append(out, c)
			delete(seen, c)
		}
	}
	for _, c := range capabilities {
		if seen[c] {
			out = append(out, c)
			delete(seen, c)
		}
	}
	return out
}
