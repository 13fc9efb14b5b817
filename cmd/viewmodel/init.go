package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vango-dev/viewmodel/internal/config"
	"github.com/vango-dev/viewmodel/internal/errors"
)

const sceneFileName = "scene.yaml"

const sampleScene = `# A list of todos rendered through a "row" component per item.
classes:
  row:
    attributes:
      required: [todo]
    data:
      sep: ": "
    computed:
      summary:
        op: concat
        deps: [todo.title, sep, todo.state]

root:
  data:
    title: Todos
    todos:
      - {title: write scene, state: done}
      - {title: inspect it, state: open}
  fragments:
    - resolve: [title]
      expressions:
        - op: count
          refs: [todos]
    - repeat:
        each: todos
        index: i
      resolve: [i, title]
      components:
        - class: row
          node:
            type: component
            name: row
            mapping:
              - type: attribute
                name: todo
                fragment:
                  - type: interpolator
                    ref: "."
          fragments:
            - resolve: [summary]
`

func initCmd() *cobra.Command {
	var (
		dir    string
		asYAML bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config and scene",
		Long: `Write viewmodel.json (or viewmodel.yaml) with the default settings,
plus a sample scene.yaml when none exists.

Examples:
  viewmodel init
  viewmodel init --yaml --dir=demo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(dir, asYAML, force)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to initialize")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Write viewmodel.yaml instead of viewmodel.json")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")

	return cmd
}

func runInit(dir string, asYAML, force bool) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if config.Exists(dir) && !force {
		return errors.New("E143").
			WithDetail("A config file already exists in " + dir).
			WithSuggestion("Use --force to overwrite it")
	}

	name := config.JSONFileName
	if asYAML {
		name = config.YAMLFileName
	}
	cfg := config.New()
	cfg.Scene = sceneFileName
	path := filepath.Join(dir, name)
	if err := cfg.SaveTo(path); err != nil {
		return err
	}
	success("Wrote %s", path)

	scenePath := filepath.Join(dir, sceneFileName)
	if _, err := os.Stat(scenePath); err == nil {
		info("Keeping existing %s", scenePath)
		return nil
	}
	if err := os.WriteFile(scenePath, []byte(sampleScene), 0644); err != nil {
		return err
	}
	success("Wrote %s", scenePath)
	info("Next: viewmodel inspect -c %s", path)
	return nil
}
