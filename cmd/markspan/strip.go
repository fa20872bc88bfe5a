package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/transform"

	"github.com/coregx/markspan"
	"github.com/coregx/markspan/internal/config"
	"pkt.systems/pslog"
)

func newStripCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "strip [file]",
		Short: "Copy text to stdout with the configured templates applied",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			parser, err := cfg.NewParser(markspan.WithLogger(pslog.Ctx(cmd.Context())))
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				in = f
			}
			_, err = io.Copy(cmd.OutOrStdout(), transform.NewReader(in, parser.Transformer()))
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}
