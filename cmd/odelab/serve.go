package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/odelab/internal/api"
	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/solver"
	"github.com/san-kum/odelab/internal/viz"
)

var addr string

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the solver over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := newService(ctx)
			if err != nil {
				return err
			}
			return api.Serve(ctx, cfg.Server, api.NewHandler(svc, logger).Routes(), logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	return cmd
}

// batchFile is the on-disk layout read by the batch command.
type batchFile struct {
	Problems []solver.Request `yaml:"problems"`
}

func batchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [file.yaml]",
		Short: "solve every problem in a yaml file concurrently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var bf batchFile
			if err := yaml.Unmarshal(data, &bf); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}
			if len(bf.Problems) == 0 {
				return fmt.Errorf("%s has no problems", args[0])
			}

			svc, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			items := svc.SolveBatch(cmd.Context(), bf.Problems)

			if asJSON {
				out := make([]any, len(items))
				for i, it := range items {
					if it.Err != nil {
						out[i] = map[string]string{"equation": bf.Problems[i].Equation, "error": it.Err.Error()}
						continue
					}
					out[i] = it.Result
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			s := styles()
			failed := 0
			for i, it := range items {
				fmt.Println(s.Title.Render(fmt.Sprintf("[%d] %s", i+1, bf.Problems[i].Equation)))
				if it.Err != nil {
					failed++
					fmt.Println(viz.RenderError(s, it.Err))
					continue
				}
				fmt.Println(viz.RenderResult(s, it.Result))
			}
			fmt.Println(s.Subtle.Render(fmt.Sprintf("%d solved, %d failed", len(items)-failed, failed)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [name]",
		Short: "list preset exercises or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				p := config.GetPreset(args[0])
				if p == nil {
					return fmt.Errorf("unknown preset: %s", args[0])
				}
				out, err := yaml.Marshal(p)
				if err != nil {
					return err
				}
				fmt.Print(string(out))
				return nil
			}

			names := config.ListPresets()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDIFFICULTY\tSTRATEGY\tEQUATION")
			for _, name := range names {
				p := config.Presets[name]
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, p.Difficulty, p.Strategy, p.Equation)
			}
			return w.Flush()
		},
	}
}

func initConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the default config to a yaml file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "odelab.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Save(path, config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
}
