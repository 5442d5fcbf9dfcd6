package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/crashinsight/internal/utils"
	"github.com/spf13/cobra"
)

// outputFlags is shared by every command that prints a result.
type outputFlags struct {
	json bool
	path string
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.json, "json", false, "print the result as JSON")
	cmd.Flags().StringVarP(&o.path, "output", "o", "", "write the result to a file instead of stdout")
}

// emit writes v as JSON or the text rendering, to --output or stdout.
func (o *outputFlags) emit(cmd *cobra.Command, v any, text func() string) error {
	var data []byte
	if o.json {
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return err
		}
		data = append(b, '\n')
	} else {
		s := text()
		if !strings.HasSuffix(s, "\n") {
			s += "\n"
		}
		data = []byte(s)
	}
	if o.path != "" {
		if err := utils.SafeWriteFile(o.path, data); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote result to %s\n", o.path)
		return nil
	}
	_, err := cmd.OutOrStdout().Write(data)
	return err
}
