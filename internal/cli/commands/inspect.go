package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/projector/internal/cli/ui"
	"github.com/conduit-lang/projector/internal/serializer"
)

// NewInspectCommand creates the inspect command
func NewInspectCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [serializer]",
		Short: "Show serializers and their relationships",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			names := a.serializers.Registry.Names()
			if len(args) == 1 {
				s, ok := a.serializers.Lookup(args[0])
				if !ok {
					fmt.Fprint(cmd.ErrOrStderr(), ui.SerializerNotFoundError(args[0], ui.FindSimilar(args[0], names, nil), !isColorEnabled()))
					return &reportedError{fmt.Errorf("unknown serializer %q", args[0])}
				}
				names = []string{s.Name()}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "max depth: %d\n", a.serializers.Registry.MaxDepth())
			for _, name := range names {
				s, _ := a.serializers.Registry.Lookup(name)
				fmt.Fprintln(cmd.OutOrStdout())
				printSerializer(cmd, s)
			}
			return nil
		},
	}
}

func printSerializer(cmd *cobra.Command, s *serializer.Serializer) {
	out := cmd.OutOrStdout()
	color.New(color.FgCyan, color.Bold).Fprintf(out, "%s (type %s)\n", s.Name(), s.RecordType())

	table := ui.NewTable(out, !isColorEnabled(), "KEY", "KIND", "TARGET", "FLAGS")
	for _, rel := range s.Relationships() {
		target, recordType := rel.Target()
		switch {
		case rel.IsPolymorphic():
			target = "(polymorphic)"
		case rel.IsPerObject():
			target = "(dynamic)"
		case target == "" && recordType != "":
			target = "(stubs: " + recordType + ")"
		case target == "":
			target = "(dynamic)"
		}

		var flags []string
		if rel.IsLazy() {
			flags = append(flags, "lazy")
		}
		table.AddRow(rel.Key(), rel.Kind().String(), target, strings.Join(flags, ","))
	}
	table.Render()
}

func isColorEnabled() bool {
	return !color.NoColor
}
