package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/odelab/internal/export"
	"github.com/san-kum/odelab/internal/storage"
	"github.com/san-kum/odelab/internal/viz"
)

var (
	exportPath   string
	exportFormat string
)

func runsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "list saved numeric runs",
		RunE:  listRuns,
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(cfg.Storage.DataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEQUATION\tMETHOD\tTIME\tSTEP\tSTEPS\tPEAK\tESCAPE\tWARN")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%d\t%.4g\t%s\t%d\n",
			run.ID,
			run.Equation,
			run.Method,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Step,
			run.Steps,
			run.Metrics["peak"],
			run.Escape(),
			len(run.Warnings),
		)
	}
	return w.Flush()
}

func plotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(cfg.Storage.DataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			trace, err := st.LoadTrace(args[0])
			if err != nil {
				return err
			}
			s := styles()
			fmt.Println(s.Title.Render(meta.Equation) + "  " + s.Subtle.Render(meta.Method))
			fmt.Println(viz.PlotTrace(trace, 80, 12))
			return nil
		},
	}
}

func exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export a saved run as JSON or SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(cfg.Storage.DataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			trace, err := st.LoadTrace(args[0])
			if err != nil {
				return err
			}
			switch exportFormat {
			case "json":
				if exportPath == "" {
					return storage.WriteJSON(os.Stdout, meta, trace)
				}
				if err := storage.ExportJSON(exportPath, meta, trace); err != nil {
					return err
				}
			case "svg":
				svg := export.TraceToSVG(trace, 800, 400)
				if exportPath == "" {
					fmt.Println(svg)
					return nil
				}
				if err := os.WriteFile(exportPath, []byte(svg), 0644); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unknown format %q (json, svg)", exportFormat)
			}
			fmt.Fprintf(os.Stderr, "exported to %s\n", exportPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&exportPath, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "json or svg")
	return cmd
}
