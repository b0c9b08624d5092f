package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ha1tch/fsm-canvas/pkg/graphfile"
	"github.com/spf13/cobra"
)

func (a *app) convertCmd() *cobra.Command {
	var output, name string
	var pretty bool
	cmd := &cobra.Command{
		Use:   "convert <input>",
		Short: "Convert between plain JSON and " + graphfile.BundleExt + " bundles",
		Long: "Convert between plain JSON and " + graphfile.BundleExt + " bundles.\n" +
			"Without -o, a .json input becomes a bundle and anything else becomes JSON.",
		Example: "  fsmcanvas convert machine.json\n  fsmcanvas convert machine.fsmc -o machine.json --pretty",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			doc, meta, err := a.loadDocument(input)
			if err != nil {
				return err
			}

			if output == "" {
				if filepath.Ext(input) == ".json" {
					output = swapExt(input, graphfile.BundleExt)
				} else {
					output = swapExt(input, ".json")
				}
			}
			if name != "" {
				meta.Name = name
			}
			if meta.Name == "" {
				meta.Name = title(input, meta)
			}

			switch filepath.Ext(output) {
			case graphfile.BundleExt:
				err = graphfile.WriteFile(output, doc, meta)
			case ".json":
				var data []byte
				data, err = graphfile.ToJSON(doc, pretty)
				if err == nil {
					err = os.WriteFile(output, append(data, '\n'), 0o644)
				}
			default:
				return fmt.Errorf("unknown output format: %s", filepath.Ext(output))
			}
			if err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			a.logger.Info("converted", "from", input, "to", output)
			fmt.Fprintf(cmd.OutOrStdout(), "Written: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (.json or "+graphfile.BundleExt+")")
	cmd.Flags().StringVar(&name, "name", "", "bundle name")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent JSON output")
	return cmd
}

func (a *app) dotCmd() *cobra.Command {
	var output, diagramTitle string
	cmd := &cobra.Command{
		Use:     "dot <input>",
		Short:   "Generate Graphviz DOT output",
		Example: "  fsmcanvas dot machine.fsmc | neato -n -Tpng -o machine.png",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, meta, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}
			if diagramTitle == "" {
				diagramTitle = title(args[0], meta)
			}
			dot := graphfile.GenerateDOT(doc, diagramTitle)
			if output == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), dot)
				return err
			}
			if err := os.WriteFile(output, []byte(dot), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&diagramTitle, "title", "t", "", "diagram title")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var output, format, diagramTitle string
	var width, height int
	cmd := &cobra.Command{
		Use:   "export <input>",
		Short: "Render a diagram as PNG, SVG or DOT",
		Long: "Render a diagram as PNG, SVG or DOT. The format defaults to the\n" +
			"output extension, then to the configured export format.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			doc, meta, err := a.loadDocument(input)
			if err != nil {
				return err
			}

			if format == "" {
				format = exportFormat(output, a.cfg.Export.Format)
			}
			if output == "" {
				output = swapExt(input, "."+format)
			}
			if diagramTitle == "" {
				diagramTitle = title(input, meta)
			}
			opts := graphfile.DefaultOptions()
			opts.Title = diagramTitle
			opts.Width = a.cfg.Export.Width
			opts.Height = a.cfg.Export.Height
			if width > 0 {
				opts.Width = width
			}
			if height > 0 {
				opts.Height = height
			}

			var buf bytes.Buffer
			switch format {
			case "png":
				if err := graphfile.RenderPNG(doc, &buf, opts); err != nil {
					return fmt.Errorf("render png: %w", err)
				}
			case "svg":
				buf.WriteString(graphfile.RenderSVG(doc, opts))
			case "dot":
				buf.WriteString(graphfile.GenerateDOT(doc, diagramTitle))
			default:
				return fmt.Errorf("unknown export format %q", format)
			}

			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			a.logger.Info("exported", "path", output, "format", format, "bytes", buf.Len())
			fmt.Fprintf(cmd.OutOrStdout(), "Written: %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file")
	cmd.Flags().StringVarP(&format, "format", "f", "", "png, svg or dot")
	cmd.Flags().StringVarP(&diagramTitle, "title", "t", "", "diagram title")
	cmd.Flags().IntVar(&width, "width", 0, "canvas width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "canvas height in pixels")
	return cmd
}

// exportFormat infers the format from the output extension.
func exportFormat(output, fallback string) string {
	switch ext := filepath.Ext(output); ext {
	case ".png", ".svg", ".dot":
		return ext[1:]
	case ".gv":
		return "dot"
	}
	return fallback
}
