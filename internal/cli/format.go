package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"mailbuddy/internal/model"
	"mailbuddy/internal/triage"
)

// triaged is one classified message and, when moves were applied, where it went.
type triaged struct {
	Msg    model.Message
	Result triage.Result
	Folder string
	Moved  bool
	Err    error
}

func printTriage(out io.Writer, rows []triaged, applied bool) {
	tw := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	if applied {
		fmt.Fprintln(tw, "UID\tCATEGORY\tFROM\tSUBJECT\tFOLDER\tSTATUS")
	} else {
		fmt.Fprintln(tw, "UID\tCATEGORY\tFROM\tSUBJECT\tACTION")
	}
	for _, row := range rows {
		subject := truncate(row.Msg.Subject, 60)
		sender := truncate(row.Msg.Sender, 40)
		if !applied {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", row.Msg.UID, row.Result.Category, sender, subject, row.Result.Action)
			continue
		}
		status := "moved"
		switch {
		case row.Err != nil:
			status = "error: " + row.Err.Error()
		case !row.Moved:
			status = "skipped"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", row.Msg.UID, row.Result.Category, sender, subject, row.Folder, status)
	}
	_ = tw.Flush()
}

func printResult(out io.Writer, msg model.Message, res triage.Result, folder string) {
	fmt.Fprintf(out, "From:          %s\n", msg.Sender)
	fmt.Fprintf(out, "Subject:       %s\n", msg.Subject)
	fmt.Fprintf(out, "Category:      %s\n", res.Category)
	fmt.Fprintf(out, "Folder:        %s\n", folder)
	fmt.Fprintf(out, "Action:        %s\n", res.Action)
	fmt.Fprintf(out, "Justification: %s\n", res.Justification)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
