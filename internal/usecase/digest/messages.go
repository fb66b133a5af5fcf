package digest

import (
	"fmt"
	"strings"

	domdigest "github.com/kailas-cloud/readdigest/internal/domain/digest"
	"github.com/kailas-cloud/readdigest/internal/domain/notify"
)

// Embed colors.
const (
	colorOK      = 0x2ECC71
	colorWarning = 0xF1C40F
	colorFailed  = 0xE74C3C
)

// StartMessage announces a run.
func StartMessage(file string, keywords []string) string {
	return fmt.Sprintf("🚀 **Starting extraction**\n- File: %s\n- Keywords: %s", file, strings.Join(keywords, ", "))
}

// FoundMessage reports the extraction count.
func FoundMessage(n int) string {
	return fmt.Sprintf("📝 Found %d matching entries", n)
}

// ParseFailedMessage is the summary of a run aborted by a parse failure.
func ParseFailedMessage(err error) string {
	return fmt.Sprintf("❌ Failed to parse document: %v", err)
}

// BudgetAbortMessage is the summary of a run aborted by the budget ceiling.
func BudgetAbortMessage(file, exceeded string) string {
	return fmt.Sprintf("🛑 **Extraction aborted**\n- File: %s\n- %s", file, exceeded)
}

// SummaryMessage is the final report of a completed run.
func SummaryMessage(res *domdigest.Result, status, locator string) notify.Message {
	var b strings.Builder
	b.WriteString("✅ **Extraction Complete**\n")
	fmt.Fprintf(&b, "- Entries found: %d\n", res.Found)
	fmt.Fprintf(&b, "- New entries added: %d\n", res.Added)
	fmt.Fprintf(&b, "- Duplicates skipped: %d\n", res.Duplicates)
	if res.LookupErr != nil {
		b.WriteString("- ⚠️ Duplicate check unavailable, all entries treated as new\n")
	}
	if res.StoreErr != nil {
		fmt.Fprintf(&b, "- ⚠️ Store write failed, %d entries not written: %v\n", res.Unwritten, res.StoreErr)
	}
	fmt.Fprintf(&b, "- %s", status)
	if locator != "" {
		fmt.Fprintf(&b, "\n\n📋 **Please review your records:**\n%s", locator)
	}

	color := colorOK
	if res.StoreErr != nil || res.LookupErr != nil {
		color = colorWarning
	}
	return notify.Message{
		Content: b.String(),
		Embed: &notify.Embed{
			Title: res.File,
			URL:   locator,
			Color: color,
			Fields: []notify.Field{
				{Name: "Found", Value: fmt.Sprint(res.Found), Inline: true},
				{Name: "Added", Value: fmt.Sprint(res.Added), Inline: true},
				{Name: "Duplicates", Value: fmt.Sprint(res.Duplicates), Inline: true},
			},
		},
	}
}

// AbortMessage wraps an abort summary with a failure embed.
func AbortMessage(res *domdigest.Result, content string) notify.Message {
	return notify.Message{
		Content: content,
		Embed:   &notify.Embed{Title: res.File, Description: string(res.State), Color: colorFailed},
	}
}

// EstimateMessage reports a budget-only run.
func EstimateMessage(est *domdigest.Estimate, mode string) string {
	status := "✅ Within budget"
	if !est.WithinBudget {
		status = "⚠️ May exceed budget"
	}
	return fmt.Sprintf("📄 **Task Estimation**\n"+
		"- File: %s\n"+
		"- Size: %.1f KB\n"+
		"- Estimated tokens: %d (%s)\n"+
		"- Budget: %d (remaining %d)\n"+
		"- Status: %s",
		est.File, est.SizeKB, est.Cost, mode, est.Ceiling, est.Budget.Remaining(), status)
}

// EstimateFailedMessage reports a budget-only run that could not parse.
func EstimateFailedMessage(err error) string {
	return fmt.Sprintf("❌ Estimation failed: %v", err)
}
