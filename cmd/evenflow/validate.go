package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"evenflow/internal/config"
	"evenflow/internal/ingest"
	"evenflow/internal/validate"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse and lint location definitions",
		RunE:  runValidate,
	}
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	if _, err := config.LoadAffinityConfig(cfg.Resolve(cfg.Affinity)); err != nil {
		return err
	}

	docs, parseErrs, err := ingest.ParseAll(cfg)
	if err != nil {
		return err
	}
	report := validate.Run(docs)

	var errorIssues []validate.Issue
	var warnIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		}
	}

	if len(parseErrs) == 0 && len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintf(os.Stdout, "%d locations checked. No issues found.\n", len(docs))
		return nil
	}

	if len(parseErrs) > 0 {
		fmt.Fprintf(os.Stdout, "Unreadable files (%d):\n", len(parseErrs))
		for _, item := range parseErrs {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
	}
	if len(errorIssues) > 0 {
		if len(parseErrs) > 0 {
			fmt.Fprintln(os.Stdout, "")
		}
		fmt.Fprintf(os.Stdout, "Errors (%d):\n", len(errorIssues))
		printIssues(os.Stdout, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(parseErrs) > 0 || len(errorIssues) > 0 {
			fmt.Fprintln(os.Stdout, "")
		}
		fmt.Fprintf(os.Stdout, "Warnings (%d):\n", len(warnIssues))
		printIssues(os.Stdout, warnIssues)
	}

	if len(parseErrs) > 0 || len(errorIssues) > 0 {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		location := issue.Location
		if issue.FilePath != "" {
			location = fmt.Sprintf("%s (%s)", location, issue.FilePath)
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", location, issue.Message, issue.Code)
	}
}
