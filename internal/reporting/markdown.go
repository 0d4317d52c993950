package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders the run summary as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Toxic Exposure Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Toxic Markets | %d |\n", r.Summary.ToxicMarketCount))
	sb.WriteString(fmt.Sprintf("| Chains | %d |\n", r.Summary.ChainCount))
	sb.WriteString(fmt.Sprintf("| Vault Exposures | %d |\n", r.Summary.ExposureCount))
	sb.WriteString(fmt.Sprintf("| Active Exposures | %d |\n", r.Summary.ActiveExposureCount))
	sb.WriteString(fmt.Sprintf("| Vaults | %d |\n", r.Summary.VaultCount))
	sb.WriteString(fmt.Sprintf("| Assessments | %d |\n", r.Summary.AssessmentCount))
	sb.WriteString(fmt.Sprintf("| Confirmed Bad Debt | %d |\n", r.Summary.ConfirmedCount))
	sb.WriteString(fmt.Sprintf("| Oracle-Masked Markets | %d |\n", r.Summary.OracleMaskingCount))
	sb.WriteString(fmt.Sprintf("| Best-Estimate Loss (USD) | %.2f |\n", r.Summary.TotalBestEstimateUSD))
	sb.WriteString(fmt.Sprintf("| Curator Profiles | %d |\n", r.Summary.ProfileCount))
	sb.WriteString("\n")

	sb.WriteString("## Bad Debt Classification\n\n")
	if len(r.StatusBreakdown) > 0 {
		sb.WriteString("| Status | Markets |\n")
		sb.WriteString("|--------|--------|\n")
		for _, row := range r.StatusBreakdown {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Status, row.Count))
		}
	} else {
		sb.WriteString("No assessments available.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Curator Response\n\n")
	if len(r.ResponseBreakdown) > 0 {
		sb.WriteString("| Class | Vaults |\n")
		sb.WriteString("|-------|-------|\n")
		for _, row := range r.ResponseBreakdown {
			sb.WriteString(fmt.Sprintf("| %s | %d |\n", row.Class, row.Count))
		}
	} else {
		sb.WriteString("No profiles available.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Largest Best-Estimate Losses\n\n")
	if len(r.TopLosses) > 0 {
		sb.WriteString("| Market | Chain | Collateral | Loan | Status | Loss (USD) |\n")
		sb.WriteString("|--------|-------|------------|------|--------|------------|\n")
		for _, row := range r.TopLosses {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %.2f |\n",
				row.MarketUniqueKey, row.Chain, row.CollateralSymbol,
				row.LoanSymbol, row.Status, row.BestEstimateUSD))
		}
	} else {
		sb.WriteString("No losses detected.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
