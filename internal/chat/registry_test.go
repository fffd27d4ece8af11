package chat

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/harborbank/advisor/internal/accounts"
	"github.com/harborbank/advisor/internal/llm"
)

func bankingRegistry(t *testing.T) *ToolRegistry {
	t.Helper()
	reg := NewToolRegistry()
	if err := RegisterBankingTools(reg, accounts.NewSeededStore()); err != nil {
		t.Fatalf("register tools: %v", err)
	}
	return reg
}

func TestToolRegistry_DefinitionsSorted(t *testing.T) {
	reg := bankingRegistry(t)
	defs := reg.Definitions()
	if len(defs) != 3 {
		t.Fatalf("got %d definitions", len(defs))
	}
	want := []string{"openAccount", "showAccounts", "showRMDCalculator"}
	for i, w := range want {
		if defs[i].Name != w {
			t.Errorf("defs[%d] = %s, want %s", i, defs[i].Name, w)
		}
	}
}

func TestToolRegistry_RegisterRejectsDuplicates(t *testing.T) {
	reg := bankingRegistry(t)
	err := reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{Name: "showAccounts"},
		Generate: func(ctx context.Context, args map[string]any) (ToolOutput, error) {
			return ToolOutput{}, nil
		},
	})
	if err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestToolRegistry_RegisterRejectsBadNames(t *testing.T) {
	reg := NewToolRegistry()
	err := reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{Name: "bad name!"},
		Generate: func(ctx context.Context, args map[string]any) (ToolOutput, error) {
			return ToolOutput{}, nil
		},
	})
	if err == nil {
		t.Fatal("expected invalid name to fail")
	}
}

func TestToolRegistry_ValidateUnknownTool(t *testing.T) {
	reg := bankingRegistry(t)
	_, _, err := reg.Validate(llm.ToolCallData{ID: "c1", Name: "transferFunds", Arguments: json.RawMessage(`{}`)})
	if err == nil || !strings.Contains(err.Error(), "unknown tool") {
		t.Fatalf("err = %v", err)
	}
}

func TestToolRegistry_ValidateArgs(t *testing.T) {
	reg := bankingRegistry(t)

	tests := []struct {
		name    string
		tool    string
		args    string
		wantErr bool
	}{
		{"empty args ok", "showAccounts", `{}`, false},
		{"no args ok", "showAccounts", ``, false},
		{"extra property rejected", "showRMDCalculator", `{"surprise":true}`, true},
		{"guidance flag ok", "showRMDCalculator", `{"showGuidance":true}`, false},
		{"wrong type rejected", "showRMDCalculator", `{"showGuidance":"yes"}`, true},
		{"prefill ok", "showRMDCalculator", `{"prefillData":{"accountType":"Traditional IRA","balance":100000}}`, false},
		{"bad registration type", "showRMDCalculator", `{"prefillData":{"registrationType":"corporate"}}`, true},
		{"malformed JSON", "showAccounts", `{`, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := reg.Validate(llm.ToolCallData{ID: "c1", Name: tc.tool, Arguments: json.RawMessage(tc.args)})
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestRMDCalculatorTool_NormalizesPrefill(t *testing.T) {
	reg := bankingRegistry(t)
	tool, args, err := reg.Validate(llm.ToolCallData{
		ID:   "c1",
		Name: "showRMDCalculator",
		Arguments: json.RawMessage(`{
			"showGuidance": true,
			"prefillData": {
				"accountType": "Traditional IRA",
				"balance": 100000,
				"beneficiaryBirthDate": "03/15/1990"
			}
		}`),
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	out, err := tool.Generate(context.Background(), args)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.Artifact == nil || out.Artifact.Kind != ArtifactRMDCalculator {
		t.Fatalf("artifact = %+v", out.Artifact)
	}
	if !out.Artifact.ShowGuidance {
		t.Error("showGuidance not carried through")
	}
	p := out.Artifact.Prefill
	if p == nil || p.AccountType == nil || *p.AccountType != "traditional-ira" {
		t.Errorf("account type not slugged: %+v", p)
	}
	if p.BeneficiaryBirthDate == nil || *p.BeneficiaryBirthDate != "1990-03-15" {
		t.Errorf("birth date not normalized: %+v", p.BeneficiaryBirthDate)
	}
}
