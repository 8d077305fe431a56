package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/spelldeck/spelldeck/internal/model"
	"github.com/spelldeck/spelldeck/internal/store"
	"github.com/spelldeck/spelldeck/internal/study"
)

var (
	recordsUser  string
	recordsGrade string
	recordsTerm  string
)

var recordsCmd = &cobra.Command{
	Use:     "records",
	Aliases: []string{"rec"},
	Short:   "List, show, find and delete study records",
	Args:    cobra.NoArgs,
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List study records, newest first",
	Args:  cobra.NoArgs,
	RunE: withRecords(func(cmd *cobra.Command, svc *study.Service, _ []string) error {
		ctx := cmd.Context()

		var (
			records []model.StudyRecord
			err     error
		)
		switch {
		case recordsGrade != "" && recordsTerm != "":
			records, err = svc.RecordsByGradeTerm(ctx, recordsUser, recordsGrade, recordsTerm)
		case recordsGrade != "":
			records, err = svc.RecordsByGrade(ctx, recordsUser, recordsGrade)
		default:
			records, err = svc.ListRecords(ctx, recordsUser)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, faint("No records."))
			return nil
		}
		for _, r := range records {
			printRecordLine(out, r)
		}
		return nil
	}),
}

var recordsGradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "List the grades that have records",
	Args:  cobra.NoArgs,
	RunE: withRecords(func(cmd *cobra.Command, svc *study.Service, _ []string) error {
		grades, err := svc.Grades(cmd.Context(), recordsUser)
		if err != nil {
			return err
		}
		for _, g := range grades {
			fmt.Fprintln(cmd.OutOrStdout(), g)
		}
		return nil
	}),
}

var recordsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a record and its words",
	Args:  cobra.ExactArgs(1),
	RunE: withRecords(func(cmd *cobra.Command, svc *study.Service, args []string) error {
		r, err := svc.GetRecord(cmd.Context(), recordsUser, args[0])
		if err != nil {
			return err
		}
		return renderMarkdown(cmd.OutOrStdout(), recordMarkdown(r))
	}),
}

var recordsFindCmd = &cobra.Command{
	Use:   "find QUERY",
	Short: "Fuzzy find records by title or word",
	Args:  cobra.ExactArgs(1),
	RunE: withRecords(func(cmd *cobra.Command, svc *study.Service, args []string) error {
		records, err := svc.ListRecords(cmd.Context(), recordsUser)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		matches := fuzzy.FindFrom(args[0], recordSource(records))
		if len(matches) == 0 {
			fmt.Fprintln(out, faint("No matches."))
			return nil
		}
		for _, m := range matches {
			printRecordLine(out, records[m.Index])
		}
		return nil
	}),
}

var recordsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a record with its word media",
	Args:  cobra.ExactArgs(1),
	RunE: withRecords(func(cmd *cobra.Command, svc *study.Service, args []string) error {
		if err := svc.DeleteRecord(cmd.Context(), recordsUser, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", args[0])
		return nil
	}),
}

// withRecords opens the record service for the duration of run.
func withRecords(run func(*cobra.Command, *study.Service, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if recordsUser == "" {
			recordsUser = cfg.Server.DevUser
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		st, err := store.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("unable to open database: %w", err)
		}
		defer st.Close() //nolint:errcheck

		svc, err := openRecords(ctx, cfg, st)
		if err != nil {
			return err
		}
		return run(cmd, svc, args)
	}
}

// recordSource lets fuzzy match a record's title together with its words.
type recordSource []model.StudyRecord

func (s recordSource) String(i int) string {
	return s[i].Title + " " + strings.Join(s[i].Words(), " ")
}

func (s recordSource) Len() int { return len(s) }

func printRecordLine(w io.Writer, r model.StudyRecord) {
	fmt.Fprintf(w, "%s  %s  %s\n",
		keyword(r.ID),
		r.Title,
		faint(fmt.Sprintf("%d words, %s", r.Content.TotalItems, humanize.Time(r.CreatedAt))),
	)
}

func recordMarkdown(r model.StudyRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Title)
	if r.Content.Subtitle != "" {
		fmt.Fprintf(&b, "_%s_\n\n", r.Content.Subtitle)
	}
	fmt.Fprintf(&b, "Created %s. %d words.\n\n", humanize.Time(r.CreatedAt), r.Content.TotalItems)

	b.WriteString("| # | Word | Phonetic | Sentence |\n|---|---|---|---|\n")
	for _, it := range r.Content.Items {
		fmt.Fprintf(&b, "| %d | **%s** | %s | %s |\n", it.ID, it.TargetWord, it.Phonetic, it.BlankedSentence)
	}

	for _, it := range r.Content.Items {
		if it.Meaning == "" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n*%s* %s\n", it.TargetWord, it.WordType, it.Meaning)
		if len(it.Synonyms) > 0 {
			fmt.Fprintf(&b, "\n- Synonyms: %s", strings.Join(it.Synonyms, ", "))
		}
		if len(it.Antonyms) > 0 {
			fmt.Fprintf(&b, "\n- Antonyms: %s", strings.Join(it.Antonyms, ", "))
		}
		for _, s := range it.PracticeSentences {
			fmt.Fprintf(&b, "\n- %s", s)
		}
		if it.MemoryTip != "" {
			fmt.Fprintf(&b, "\n\n> %s", it.MemoryTip)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// renderMarkdown styles md for the terminal. Piped output stays plain
// Markdown.
func renderMarkdown(w io.Writer, md string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		_, err := io.WriteString(w, md)
		return err
	}

	width := 80
	if tw, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && tw > 0 {
		width = min(tw, 120)
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func init() {
	recordsCmd.PersistentFlags().StringVarP(&recordsUser, "user", "u", "", "owner of the records (default: the development user)")
	recordsListCmd.Flags().StringVarP(&recordsGrade, "grade", "g", "", "only records of this grade")
	recordsListCmd.Flags().StringVarP(&recordsTerm, "term", "t", "", "with --grade, only records of this term")

	recordsCmd.AddCommand(recordsListCmd, recordsGradesCmd, recordsShowCmd, recordsFindCmd, recordsDeleteCmd)
}
