package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/projector/internal/catalog"
	"github.com/conduit-lang/projector/internal/cli/ui"
	"github.com/conduit-lang/projector/internal/fields"
	"github.com/conduit-lang/projector/internal/record"
)

type renderFlags struct {
	fields  string
	noLinks bool
	params  map[string]string
	depth   int
	compact bool
}

// NewRenderCommand creates the render command
func NewRenderCommand(flags *globalFlags) *cobra.Command {
	rf := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render <type> <id>",
		Short: "Render one record as a JSON document",
		Long: `Render one record of the catalog as a JSON document.

The type is a serializer name or a collection name: movie, movies, actor,
user.`,
		Example: `  projector render movie 232
  projector render actors a1 --fields "first_name,played_movies(name)"
  projector render actor a1 --param conditionals_off=yes --no-links`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("depth") {
				cfg.Serializer.MaxDepth = rf.depth
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return runRender(cmd, a, rf, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&rf.fields, "fields", "f", "", `Sparse field selection, e.g. "name,actors(first_name)"`)
	cmd.Flags().BoolVar(&rf.noLinks, "no-links", false, "Omit links")
	cmd.Flags().StringToStringVar(&rf.params, "param", nil, "Parameter passed to conditions and callables (key=value)")
	cmd.Flags().IntVar(&rf.depth, "depth", 2, "Deepest level at which relationships are inlined")
	cmd.Flags().BoolVar(&rf.compact, "compact", false, "Print compact JSON")
	return cmd
}

func runRender(cmd *cobra.Command, a *app, rf *renderFlags, typeName, id string) error {
	noColor := !isColorEnabled()

	s, ok := a.serializers.Lookup(typeName)
	if !ok {
		names := a.serializers.Registry.Names()
		fmt.Fprint(cmd.ErrOrStderr(), ui.SerializerNotFoundError(typeName, ui.FindSimilar(typeName, names, nil), noColor))
		return &reportedError{fmt.Errorf("unknown serializer %q", typeName)}
	}

	rec, err := a.store.Find(s.RecordType(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			ids := a.store.IDs(s.RecordType())
			fmt.Fprint(cmd.ErrOrStderr(), ui.RecordNotFoundError(s.RecordType(), id, ui.FindSimilar(id, ids, nil), noColor))
			return &reportedError{err}
		}
		return err
	}

	opts := a.defaults()
	opts.NoLinks = opts.NoLinks || rf.noLinks
	if rf.fields != "" {
		if opts.Fields, err = fields.Parse(rf.fields); err != nil {
			return fmt.Errorf("invalid --fields: %w", err)
		}
	}
	if len(rf.params) > 0 {
		opts.Params = make(record.Params, len(rf.params))
		for k, v := range rf.params {
			opts.Params[strings.TrimSpace(k)] = v
		}
	}

	doc, err := s.Serialize(cmd.Context(), rec, opts)
	if err != nil {
		return err
	}

	var out []byte
	if rf.compact {
		out, err = json.Marshal(doc)
	} else {
		out, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
