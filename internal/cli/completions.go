package cli

import (
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ditto/pkg/models"
)

// completeSourceKinds completes --source values.
func completeSourceKinds(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(models.SourceFile) + "\tRead a caption file",
		string(models.SourceInteractive) + "\tType fragments at a prompt",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeSinceWindows completes --since values.
func completeSinceWindows(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		"24h\tLast day",
		"7d\tLast week",
		"30d\tLast month",
	}, cobra.ShellCompDirectiveNoFileComp
}

// completeCaptionFiles restricts --path completion to caption-like files.
func completeCaptionFiles(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"txt", "log", "jsonl", "vtt"}, cobra.ShellCompDirectiveFilterFileExt
}
