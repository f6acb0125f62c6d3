// Package resultprint renders a PhaseResult to stdout. Rendering is
// kept out of the orchestrator so phases stay free of presentation
// concerns.
package resultprint

import (
	"fmt"

	"github.com/flowteam/flowctl/internal/model"
)

// Print writes result to stdout: status line, per-message lines, and
// whichever artifacts the phase produced.
func Print(result model.PhaseResult) {
	switch result.Status {
	case model.PhaseCompleted:
		fmt.Println("✅ Completed")
	case model.PhaseAborted:
		fmt.Printf("⏹  Aborted (%s)\n", result.Reason)
	case model.PhaseFailed:
		fmt.Printf("❌ Failed (%s)\n", result.Reason)
	}

	for _, msg := range result.Messages {
		fmt.Printf("   %s\n", msg)
	}

	if result.Artifacts.Branch != "" {
		fmt.Printf("   branch: %s\n", result.Artifacts.Branch)
	}
	if result.Artifacts.Issue != nil {
		fmt.Printf("   issue:  #%d %s\n", result.Artifacts.Issue.Number, result.Artifacts.Issue.Title)
	}
	if result.Artifacts.PR != nil {
		fmt.Printf("   PR:     #%d %s\n", result.Artifacts.PR.Number, result.Artifacts.PR.URL)
	}
	if result.RequiresManualAction {
		fmt.Println("   manual follow-up required")
	}
}
