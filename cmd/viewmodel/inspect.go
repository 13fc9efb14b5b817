package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vango-dev/viewmodel"
	"github.com/vango-dev/viewmodel/internal/errors"
	"github.com/vango-dev/viewmodel/internal/scene"
	"gopkg.in/yaml.v3"
)

func inspectCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		sets   []string
	)

	cmd := &cobra.Command{
		Use:   "inspect [scene]",
		Short: "Resolve every reference in a scene and print the values",
		Long: `Build the scene, resolve the references listed on its fragments
and print what each one resolved to.

--set writes to the root instance after the build, so you can see which
bindings follow the change.

Examples:
  viewmodel inspect team.yaml
  viewmodel inspect team.yaml --set people.0.name=lovelace
  viewmodel inspect --format=json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			sc, err := loadScene(cfg, args)
			if err != nil {
				return err
			}
			s := newSession(cfg, sc, cmd.ErrOrStderr())
			defer s.rt.Close()

			ctx := cmd.Context()
			res, err := scene.Build(ctx, s.rt, sc, s.loader)
			if err != nil {
				return err
			}
			for _, set := range sets {
				kp, raw, ok := strings.Cut(set, "=")
				if !ok {
					return errors.Newf(errors.CategoryCLI, "--set %q is not keypath=value", set)
				}
				if err := s.rt.Set(ctx, res.Root.GUID(), kp, parseValue(raw)); err != nil {
					return err
				}
			}
			return printValues(cmd.OutOrStdout(), format, res.Values(s.rt), s.rt.Stats())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Write keypath=value to the root instance (value parsed as JSON when possible)")

	return cmd
}

// parseValue reads raw as JSON, falling back to the plain string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

type report struct {
	Stats    viewmodel.Stats `json:"stats" yaml:"stats"`
	Bindings []scene.Value   `json:"bindings" yaml:"bindings"`
}

func printValues(w io.Writer, format string, values []scene.Value, stats viewmodel.Stats) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report{Stats: stats, Bindings: values})
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(report{Stats: stats, Bindings: values})
	case "text":
	default:
		return errors.Newf(errors.CategoryCLI, "unknown format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tFRAGMENT\tREF\tKIND\tKEYPATH\tVALUE")
	for _, v := range values {
		value := fmt.Sprint(v.Value)
		if !v.Resolved {
			value = "(unresolved)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", v.Instance, v.Fragment, v.Ref, v.Kind, v.Keypath, value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d instances, %d fragments, %d bindings, %d notifications\n",
		stats.Instances, stats.Fragments, len(values), stats.Notifications)
	return nil
}
