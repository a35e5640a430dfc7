package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

//go:embed templates
var templates embed.FS

func initCmd() *cobra.Command {
	var projectName string
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new evenflow project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(dir, projectName)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to scaffold into")
	return cmd
}

func runInit(dir, projectName string) error {
	files := map[string]string{
		"evenflow.yaml":                   "templates/evenflow.yaml",
		"affinity.yaml":                   "templates/affinity.yaml",
		"locations/whispering_woods.yaml": "templates/locations/whispering_woods.yaml",
	}
	for target := range files {
		if _, err := os.Stat(filepath.Join(dir, target)); err == nil {
			return fmt.Errorf("%s already exists", target)
		}
	}

	for target, source := range files {
		contents, err := templates.ReadFile(source)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", source, err)
		}
		if target == "evenflow.yaml" {
			contents = []byte(strings.ReplaceAll(string(contents), "{{project}}", projectName))
		}
		path := filepath.Join(dir, target)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, contents, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	fmt.Fprintf(os.Stdout, "Initialised %s in %s.\n", projectName, dir)
	return nil
}
