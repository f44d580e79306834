package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"portaria/internal/domain"
	"portaria/internal/engine"
	"portaria/internal/lifecycle"
	"portaria/internal/render"
	"portaria/internal/repo"
)

func actCmd() *cobra.Command {
	act := &cobra.Command{
		Use:   "act",
		Short: "Manage administrative acts",
		Long:  "Acts move one step at a time: draft -> awaiting_signature -> signed -> awaiting_publication -> published -> in_force. Published acts are corrected by retification, never edited.",
	}
	act.AddCommand(actCreateCmd())
	act.AddCommand(actCollectiveCmd())
	act.AddCommand(actListCmd())
	act.AddCommand(actShowCmd())
	act.AddCommand(actUpdateCmd())
	act.AddCommand(actGazetteCmd())
	act.AddCommand(actTransitionCmd())
	act.AddCommand(actTransitionsCmd())
	act.AddCommand(actCheckCmd())
	act.AddCommand(actRetifyCmd())
	act.AddCommand(actRetificationsCmd())
	act.AddCommand(actRevokeCmd())
	act.AddCommand(actRenderCmd())
	return act
}

func actCreateCmd() *cobra.Command {
	var file, kind, category, date, summary, position, unit, notes string
	var subjects []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft act",
		RunE: func(cmd *cobra.Command, args []string) error {
			var act domain.Act
			if file != "" {
				f, err := readActFile(file)
				if err != nil {
					return err
				}
				act = f.act()
			} else {
				subs, err := parseSubjects(subjects)
				if err != nil {
					return err
				}
				act = domain.Act{
					InstrumentKind:  domain.InstrumentKind(kind),
					Category:        domain.Category(category),
					DocumentDate:    date,
					SummaryText:     summary,
					Subjects:        subs,
					RelatedPosition: optionalString(position),
					RelatedUnit:     optionalString(unit),
					Notes:           notes,
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				created, err := e.CreateDraft(ctx, engine.CreateOptions{Act: act, ActorID: actorID()})
				if err != nil {
					return err
				}
				return printAct(created)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file describing the act")
	cmd.Flags().StringVar(&kind, "kind", string(domain.InstrumentPortaria), "instrument kind")
	cmd.Flags().StringVar(&category, "category", "", "act category")
	cmd.Flags().StringVar(&date, "date", "", "document date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&summary, "summary", "", "summary text")
	cmd.Flags().StringArrayVar(&subjects, "subject", nil, "subject as 'name|tax id|position label|position code' (repeatable)")
	cmd.Flags().StringVar(&position, "position", "", "related position")
	cmd.Flags().StringVar(&unit, "unit", "", "related unit")
	cmd.Flags().StringVar(&notes, "notes", "", "internal notes")
	return cmd
}

func actCollectiveCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "collective",
		Short: "Compose one act binding many subjects, in file order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file required")
			}
			f, err := readActFile(file)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				created, err := e.ComposeCollective(ctx, engine.CollectiveOptions{Request: f.collective(), ActorID: actorID()})
				if err != nil {
					return err
				}
				return printAct(created)
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with the shared fields and subjects")
	return cmd
}

func actListCmd() *cobra.Command {
	var status, category, kind string
	var f repo.ActFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List acts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = domain.Status(status)
			f.Category = domain.Category(category)
			f.InstrumentKind = domain.InstrumentKind(kind)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				acts, err := e.ListActs(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(acts)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Number", "Category", "Status", "Date", "Subjects", "Version"})
				for _, a := range acts {
					tw.AppendRow(table.Row{a.ID, a.Number, a.Category, a.Status, a.DocumentDate, len(a.Subjects), a.Version})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&category, "category", "", "category filter")
	cmd.Flags().StringVar(&kind, "kind", "", "instrument kind filter")
	cmd.Flags().IntVar(&f.Year, "year", 0, "numbering year filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum rows")
	return cmd
}

func actShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show an act",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.GetAct(ctx, args[0])
				if err != nil {
					return err
				}
				return printAct(a)
			})
		},
	}
}

func actUpdateCmd() *cobra.Command {
	var version int64
	var summary, position, unit, notes, date string
	var subjects []string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a draft act",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p lifecycle.DraftPatch
			flags := cmd.Flags()
			if flags.Changed("summary") {
				p.SummaryText = &summary
			}
			if flags.Changed("position") {
				p.RelatedPosition = &position
			}
			if flags.Changed("unit") {
				p.RelatedUnit = &unit
			}
			if flags.Changed("notes") {
				p.Notes = &notes
			}
			if flags.Changed("date") {
				p.DocumentDate = &date
			}
			if flags.Changed("subject") {
				subs, err := parseSubjects(subjects)
				if err != nil {
					return err
				}
				p.Subjects = &subs
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.UpdateDraft(ctx, engine.UpdateDraftOptions{
					ID:              args[0],
					Patch:           p,
					ExpectedVersion: version,
					ActorID:         actorID(),
				})
				if err != nil {
					return err
				}
				return printAct(a)
			})
		},
	}
	cmd.Flags().Int64Var(&version, "version", 0, "version the edit is based on (required)")
	cmd.Flags().StringVar(&summary, "summary", "", "summary text")
	cmd.Flags().StringVar(&position, "position", "", "related position (empty clears)")
	cmd.Flags().StringVar(&unit, "unit", "", "related unit (empty clears)")
	cmd.Flags().StringVar(&notes, "notes", "", "internal notes")
	cmd.Flags().StringVar(&date, "date", "", "document date (YYYY-MM-DD)")
	cmd.Flags().StringArrayVar(&subjects, "subject", nil, "replace subjects; 'name|tax id|position label|position code' (repeatable)")
	_ = cmd.MarkFlagRequired("version")
	return cmd
}

func actGazetteCmd() *cobra.Command {
	var g domain.Gazette
	var version int64
	cmd := &cobra.Command{
		Use:   "gazette <id>",
		Short: "Record the official gazette number and date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.SetGazette(ctx, engine.GazetteOptions{ID: args[0], Gazette: g, ExpectedVersion: version, ActorID: actorID()})
				if err != nil {
					return err
				}
				return printAct(a)
			})
		},
	}
	cmd.Flags().StringVar(&g.Number, "number", "", "gazette issue number")
	cmd.Flags().StringVar(&g.Date, "date", "", "gazette date (YYYY-MM-DD)")
	cmd.Flags().Int64Var(&version, "version", 0, "expected version (0 skips the check)")
	return cmd
}

func actTransitionCmd() *cobra.Command {
	var to string
	var version int64
	cmd := &cobra.Command{
		Use:   "transition <id>",
		Short: "Move an act one step forward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				target := domain.Status(to)
				if target == "" {
					cur, err := e.GetAct(ctx, args[0])
					if err != nil {
						return err
					}
					next, ok := lifecycle.Next(cur.Status)
					if !ok {
						return &domain.OperationError{Op: "advance", Status: cur.Status, Reason: "no forward step"}
					}
					target = next
					if version == 0 {
						version = cur.Version
					}
				}
				a, err := e.Transition(ctx, engine.TransitionOptions{ID: args[0], To: target, ExpectedVersion: version, ActorID: actorID()})
				if err != nil {
					return err
				}
				return printAct(a)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "target status (default: the next forward step)")
	cmd.Flags().Int64Var(&version, "version", 0, "expected version (0 skips the check)")
	return cmd
}

func actTransitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transitions <id>",
		Short: "List the moves available from the act's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, edges, err := e.Allowed(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"status": a.Status, "version": a.Version, "allowed": edges})
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"From", "To", "Command"})
				for _, edge := range edges {
					tw.AppendRow(table.Row{edge.From, edge.To, "act " + string(edge.Op)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func actCheckCmd() *cobra.Command {
	var target string
	cmd := &cobra.Command{
		Use:   "check <id>",
		Short: "Dry-run the rules for entering a status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Check(ctx, args[0], domain.Status(target))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"ok": res.OK(), "violations": res.Violations})
				}
				if res.OK() {
					fmt.Printf("ready for %s\n", target)
					return nil
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"Field", "Reason"})
				for _, v := range res.Violations {
					tw.AppendRow(table.Row{v.Field, v.Reason})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "status to check")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func actRetifyCmd() *cobra.Command {
	var position, unit, subjectName, effective, justification, date string
	var subjectRow int
	cmd := &cobra.Command{
		Use:   "retify <id>",
		Short: "Create a retification draft correcting a published act",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c domain.Corrections
			flags := cmd.Flags()
			if flags.Changed("position") {
				c.Position = &position
			}
			if flags.Changed("unit") {
				c.Unit = &unit
			}
			if flags.Changed("subject-name") {
				c.SubjectName = &subjectName
			}
			if flags.Changed("subject-row") {
				c.SubjectRow = &subjectRow
			}
			if flags.Changed("effective-date") {
				c.EffectiveDate = &effective
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.Retify(ctx, engine.RetifyOptions{
					OriginalID:    args[0],
					Corrections:   c,
					Justification: justification,
					DocumentDate:  date,
					ActorID:       actorID(),
				})
				if err != nil {
					return err
				}
				return printAct(a)
			})
		},
	}
	cmd.Flags().StringVar(&position, "position", "", "corrected position")
	cmd.Flags().StringVar(&unit, "unit", "", "corrected unit")
	cmd.Flags().StringVar(&subjectName, "subject-name", "", "corrected subject name")
	cmd.Flags().IntVar(&subjectRow, "subject-row", 0, "row of the subject --subject-name corrects (required for multi-subject acts)")
	cmd.Flags().StringVar(&effective, "effective-date", "", "corrected effective date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&justification, "justification", "", "why the act is being corrected")
	cmd.Flags().StringVar(&date, "date", "", "document date of the retification (default today)")
	return cmd
}

func actRetificationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retifications <id>",
		Short: "List acts that retify this one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				acts, err := e.Retifications(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(acts)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Number", "Status", "Date", "Summary"})
				for _, a := range acts {
					tw.AppendRow(table.Row{a.ID, a.Number, a.Status, a.DocumentDate, a.SummaryText})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func actRevokeCmd() *cobra.Command {
	var reason string
	var version int64
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an act",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.Revoke(ctx, engine.RevokeOptions{ID: args[0], Reason: reason, ExpectedVersion: version, ActorID: actorID()})
				if err != nil {
					return err
				}
				return printAct(a)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "revocation reason")
	cmd.Flags().Int64Var(&version, "version", 0, "expected version (0 skips the check)")
	return cmd
}

func actRenderCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "render <id>",
		Short: "Render the text of a signed act",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				doc, err := e.Document(ctx, args[0])
				if err != nil {
					return err
				}
				if out != "" {
					return os.WriteFile(out, doc, 0o644)
				}
				_, err = os.Stdout.Write(doc)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func printAct(a domain.Act) error {
	if viper.GetBool("json") {
		return printJSON(a)
	}
	tw := newTable()
	tw.AppendRows([]table.Row{
		{"ID", a.ID},
		{"Number", a.Number},
		{"Kind", a.InstrumentKind},
		{"Category", a.Category},
		{"Status", a.Status},
		{"Document date", a.DocumentDate},
		{"Version", a.Version},
	})
	if a.SummaryText != "" {
		tw.AppendRow(table.Row{"Summary", a.SummaryText})
	}
	if a.RelatedPosition != nil {
		tw.AppendRow(table.Row{"Position", *a.RelatedPosition})
	}
	if a.RelatedUnit != nil {
		tw.AppendRow(table.Row{"Unit", *a.RelatedUnit})
	}
	if a.Gazette != nil {
		tw.AppendRow(table.Row{"Gazette", fmt.Sprintf("no. %s of %s", a.Gazette.Number, a.Gazette.Date)})
	}
	if a.Supersedes != nil {
		tw.AppendRow(table.Row{"Supersedes", *a.Supersedes})
	}
	if a.Revocation != nil {
		tw.AppendRow(table.Row{"Revoked", a.Revocation.RevokedAt + ": " + a.Revocation.Reason})
	}
	tw.Render()
	if len(a.Subjects) > 0 {
		fmt.Println(render.SubjectsTable(a.Subjects))
	}
	return nil
}
