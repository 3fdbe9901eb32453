package vault

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateCapabilities(t *testing.T) {
	tests := []struct {
		name         string
		capabilities []string
		wantErr      bool
		errContains  string
	}{
		{
			name:         "valid single capability - read",
			capabilities: []string{"read"},
			wantErr:      false,
		},
		{
			name:         "valid sts issuance capabilities",
			capabilities: []string{"read", "update"},
			wantErr:      false,
		},
		{
			name:         "valid key read capabilities",
			capabilities: []string{"read", "list"},
			wantErr:      false,
		},
		{
			name:         "valid deny alone",
			capabilities: []string{"deny"},
			wantErr:      false,
		},
		{
			name:         "duplicate deny is still deny alone",
			capabilities: []string{"deny", "deny"},
			wantErr:      false,
		},
		{
			name:         "invalid capability",
			capabilities: []string{"invalid"},
			wantErr:      true,
			errContains:  "invalid capability",
		},
		{
			name:         "deny combined with read",
			capabilities: []string{"deny", "read"},
			wantErr:      true,
			errContains:  "cannot be combined",
		},
		{
			name:         "empty capabilities",
			capabilities: []string{},
			wantErr:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCapabilities(tt.capabilities)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCapabilities() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errContains != "" {
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ValidateCapabilities() error = %q, should contain %q", err.Error(), tt.errContains)
				}
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		wantErr     bool
		errContains string
	}{
		{
			name:    "simple path",
			path:    "secret/a",
			wantErr: false,
		},
		{
			name:    "glob path",
			path:    "secret/data/app/*",
			wantErr: false,
		},
		{
			name:        "empty path",
			path:        "",
			wantErr:     true,
			errContains: "empty",
		},
		{
			name:        "parent traversal",
			path:        "secret/../sys",
			wantErr:     true,
			errContains: "..",
		},
		{
			name:        "quote would break the document",
			path:        `secret/"a`,
			wantErr:     true,
			errContains: "quotes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errContains != "" {
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("ValidatePath() error = %q, should contain %q", err.Error(), tt.errContains)
				}
			}
		})
	}
}

func TestRulesFromCapabilities(t *testing.T) {
	tests := []struct {
		name  string
		input map[string][]string
		want  []PolicyRule
	}{
		{
			name:  "nil mapping yields no rules",
			input: nil,
			want:  []PolicyRule{},
		},
		{
			name: "paths are sorted",
			input: map[string][]string{
				"secret/b": {"read", "list"},
				"secret/a": {"read", "list"},
			},
			want: []PolicyRule{
				{Path: "secret/a", Capabilities: []string{"read", "list"}},
				{Path: "secret/b", Capabilities: []string{"read", "list"}},
			},
		},
		{
			name: "capabilities are deduplicated and ordered",
			input: map[string][]string{
				"aws-v1/sts/app": {"update", "read", "update"},
			},
			want: []PolicyRule{
				{Path: "aws-v1/sts/app", Capabilities: []string{"read", "update"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RulesFromCapabilities(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RulesFromCapabilities() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestGeneratePolicyHCL(t *testing.T) {
	t.Run("single rule", func(t *testing.T) {
		rules := []PolicyRule{
			{Path: "aws-v1/sts/app", Capabilities: []string{"read", "update"}},
		}

		want := `# Vault policy managed by vault-setup
# Policy: app-aws-v1

path "aws-v1/sts/app" {
  capabilities = ["read", "update"]
}
`
		if got := GeneratePolicyHCL(rules, "app-aws-v1"); got != want {
			t.Errorf("GeneratePolicyHCL() =\n%s\nwant:\n%s", got, want)
		}
	})

	t.Run("key read policy covers exactly the given paths", func(t *testing.T) {
		rules := RulesFromCapabilities(map[string][]string{
			"secret/a": {"read", "list"},
			"secret/b": {"read", "list"},
		})
		got := GeneratePolicyHCL(rules, "app-v1-keys")

		if strings.Count(got, "path ") != 2 {
			t.Errorf("expected exactly 2 path blocks, got:\n%s", got)
		}
		for _, p := range []string{`path "secret/a"`, `path "secret/b"`} {
			if !strings.Contains(got, p) {
				t.Errorf("expected %s in:\n%s", p, got)
			}
		}
		if strings.Count(got, `capabilities = ["read", "list"]`) != 2 {
			t.Errorf("expected read/list on both paths, got:\n%s", got)
		}
	})

	t.Run("description is rendered as comment", func(t *testing.T) {
		rules := []PolicyRule{
			{Path: "secret/a", Capabilities: []string{"read"}, Description: "app config"},
		}
		got := GeneratePolicyHCL(rules, "p")
		if !strings.Contains(got, "# app config\npath \"secret/a\"") {
			t.Errorf("expected description comment before path block, got:\n%s", got)
		}
	})

	t.Run("empty rules render a header-only document", func(t *testing.T) {
		got := GeneratePolicyHCL(nil, "empty")
		want := "# Vault policy managed by vault-setup\n# Policy: empty\n"
		if got != want {
			t.Errorf("GeneratePolicyHCL() = %q, want %q", got, want)
		}
		if strings.Contains(got, "path ") {
			t.Error("empty policy should not contain path blocks")
		}
	})

	t.Run("output is deterministic", func(t *testing.T) {
		caps := map[string][]string{
			"secret/z": {"list", "read"},
			"secret/m": {"read"},
			"secret/a": {"read", "list"},
		}
		first := GeneratePolicyHCL(RulesFromCapabilities(caps), "p")
		for i := 0; i < 20; i++ {
			if got := GeneratePolicyHCL(RulesFromCapabilities(caps), "p"); got != first {
				t.Fatalf("run %d produced different output:\n%s\nvs\n%s", i, got, first)
			}
		}
	})
}
