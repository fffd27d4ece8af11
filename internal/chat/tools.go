package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/harborbank/advisor/internal/accounts"
	"github.com/harborbank/advisor/internal/llm"
	"github.com/harborbank/advisor/internal/rmd"
)

const (
	ToolShowAccounts      = "showAccounts"
	ToolShowRMDCalculator = "showRMDCalculator"
	ToolOpenAccount       = "openAccount"
)

var emptyObjectSchema = map[string]any{
	"type":       "object",
	"properties": map[string]any{},
}

// RegisterBankingTools installs the fixed assistant tool set against the
// given account store.
func RegisterBankingTools(reg *ToolRegistry, store accounts.Store) error {
	tools := []RegisteredTool{
		{
			Definition: llm.ToolDefinition{
				Name:        ToolShowAccounts,
				Description: "Show overview of user's bank accounts",
				Parameters:  emptyObjectSchema,
			},
			Generate: func(ctx context.Context, _ map[string]any) (ToolOutput, error) {
				return ToolOutput{
					Result:   "Displaying account overview",
					Artifact: &Artifact{Kind: ArtifactAccounts, Accounts: store.List()},
				}, nil
			},
		},
		{
			Definition: llm.ToolDefinition{
				Name: ToolShowRMDCalculator,
				Description: "Show the RMD calculator form with detailed guidance. The calculator helps users:\n" +
					"- Calculate Required Minimum Distributions for inherited retirement accounts\n" +
					"- Input account details, beneficiary information, and dates\n" +
					"- Get step-by-step assistance if requested\n" +
					"- Understand the implications of their RMD calculation",
				Parameters: rmdCalculatorSchema(),
			},
			Generate: generateRMDCalculator,
		},
		{
			Definition: llm.ToolDefinition{
				Name:        ToolOpenAccount,
				Description: "Show the account opening application form",
				Parameters:  emptyObjectSchema,
			},
			Generate: func(ctx context.Context, _ map[string]any) (ToolOutput, error) {
				return ToolOutput{
					Result:   "Showing account opening form",
					Artifact: &Artifact{Kind: ArtifactAccountForm},
				}, nil
			},
		},
	}
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func rmdCalculatorSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"showGuidance": map[string]any{
				"type":        "boolean",
				"description": "Whether to show detailed guidance",
			},
			"prefillData": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"accountType":            map[string]any{"type": "string"},
					"balance":                map[string]any{"type": "number"},
					"originalOwnerBirthDate": map[string]any{"type": "string"},
					"originalOwnerDeathDate": map[string]any{"type": "string"},
					"registrationType":       map[string]any{"type": "string", "enum": []any{"trust", "individual"}},
					"beneficiaryType":        map[string]any{"type": "string"},
					"beneficiaryBirthDate":   map[string]any{"type": "string"},
				},
				"additionalProperties": false,
			},
		},
		"additionalProperties": false,
	}
}

func generateRMDCalculator(ctx context.Context, args map[string]any) (ToolOutput, error) {
	showGuidance, _ := args["showGuidance"].(bool)

	var prefill *rmd.Prefill
	if raw, ok := args["prefillData"]; ok && raw != nil {
		b, err := json.Marshal(raw)
		if err != nil {
			return ToolOutput{}, fmt.Errorf("prefillData: %w", err)
		}
		var p rmd.Prefill
		if err := json.Unmarshal(b, &p); err != nil {
			return ToolOutput{}, fmt.Errorf("prefillData: %w", err)
		}
		p = rmd.NormalizePrefill(p)
		prefill = &p
	}

	return ToolOutput{
		Result: "Displaying RMD calculator with guidance",
		Artifact: &Artifact{
			Kind:         ArtifactRMDCalculator,
			ShowGuidance: showGuidance,
			Prefill:      prefill,
		},
	}, nil
}
