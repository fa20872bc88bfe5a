package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/coregx/markspan"
	"github.com/coregx/markspan/detect"
	"github.com/coregx/markspan/internal/config"
	"pkt.systems/pslog"
)

func newRenderCmd() *cobra.Command {
	var cfgPath string
	var format string
	var noDetect bool
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Process text and print the result with its spans",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if format == "" {
				format = cfg.Output.Format
			}
			if format == config.FormatAuto {
				format = autoFormat(cmd.OutOrStdout())
			}

			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			parser, err := cfg.NewParser(markspan.WithLogger(logger))
			if err != nil {
				return err
			}
			out := parser.Process(input, cfg.Base())
			if !noDetect {
				pipeline, err := cfg.NewPipeline(detect.WithLogger(logger))
				if err != nil {
					return err
				}
				if out, err = pipeline.Run(out); err != nil {
					return err
				}
			}
			logger.Debug("render done", "format", format, "bytes", len(out.Text), "spans", len(out.Spans))
			return writeResult(cmd.OutOrStdout(), format, out)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: auto, text, json or yaml (default from config)")
	cmd.Flags().BoolVar(&noDetect, "no-detect", false, "skip the detector pipeline")
	return cmd
}

func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	}
	data, err := os.ReadFile(args[0])
	return string(data), err
}

// autoFormat picks text for terminals and json otherwise.
func autoFormat(w io.Writer) string {
	if f, ok := w.(*os.File); ok && isTerminal(f.Fd()) {
		return config.FormatText
	}
	return config.FormatJSON
}

func writeResult(w io.Writer, format string, out markspan.AnnotatedText) error {
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	case config.FormatText:
		text := out.Text
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
		for _, s := range out.Spans {
			if _, err := fmt.Fprintf(w, "%d..%d %q %v\n", s.Start, s.End(), s.Text(out.Text), s.Attributes); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
