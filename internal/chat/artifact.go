package chat

import (
	"github.com/harborbank/advisor/internal/accounts"
	"github.com/harborbank/advisor/internal/rmd"
)

type ArtifactKind string

const (
	ArtifactText          ArtifactKind = "text"
	ArtifactAccounts      ArtifactKind = "accounts"
	ArtifactRMDCalculator ArtifactKind = "rmd-calculator"
	ArtifactAccountForm   ArtifactKind = "account-form"
)

// Artifact is a structured UI payload produced by a tool. A turn renders
// at most one artifact; when a tool runs, its artifact supersedes any text
// drafted earlier in the same generation.
type Artifact struct {
	Kind ArtifactKind `json:"kind"`

	Accounts []accounts.Account `json:"accounts,omitempty"`

	ShowGuidance bool         `json:"showGuidance,omitempty"`
	Prefill      *rmd.Prefill `json:"prefillData,omitempty"`
}
