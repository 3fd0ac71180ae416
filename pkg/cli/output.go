package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// getOutputFormat returns the effective output format from the root command's persistent flags.
func getOutputFormat(cmd *cobra.Command) string {
	v, _ := cmd.Root().PersistentFlags().GetString("output")
	return v
}

func validateOutputFormat(output string) error {
	if output != "" && output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q: use 'table' or 'json'", output)
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func errorJSON(err error) map[string]interface{} {
	out := map[string]interface{}{
		"error": err.Error(),
		"kind":  string(domain.KindOf(err)),
	}
	var k domain.KindedError
	if errors.As(err, &k) && k.OffendingField() != "" {
		out["field"] = k.OffendingField()
	}
	return out
}

// printTable writes rows as aligned columns under an upper-cased header.
func printTable(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	upper := make([]string, len(header))
	for i, h := range header {
		upper[i] = strings.ToUpper(h)
	}
	if _, err := fmt.Fprintln(tw, strings.Join(upper, "\t")); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(r, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatOptional(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func groupRecord(g *domain.Group) map[string]interface{} {
	rec := map[string]interface{}{
		"id":              g.ID,
		"flavor":          g.Kind,
		"title":           g.Title,
		"ownerId":         g.OwnerID,
		"minParticipants": g.MinParticipants,
		"allowJoinLate":   g.AllowJoinLate,
		"joinMode":        g.Mode(),
		"startAt":         g.StartAt.UTC(),
	}
	if g.MaxParticipants != nil {
		rec["maxParticipants"] = *g.MaxParticipants
	}
	if g.CanceledAt != nil {
		rec["canceledAt"] = g.CanceledAt.UTC()
	}
	if g.DeletedAt != nil {
		rec["deletedAt"] = g.DeletedAt.UTC()
	}
	return rec
}

func printGroup(cmd *cobra.Command, g *domain.Group) error {
	if getOutputFormat(cmd) == "json" {
		return printJSON(cmd.OutOrStdout(), groupRecord(g))
	}
	capacity := "unlimited"
	if g.MaxParticipants != nil {
		capacity = fmt.Sprintf("%d", *g.MaxParticipants)
	}
	state := "open"
	if f := g.FrozenBy(); f != "" {
		state = "read-only (" + f + ")"
	}
	return printTable(cmd.OutOrStdout(),
		[]string{"id", "flavor", "title", "owner", "mode", "capacity", "starts", "state"},
		[][]string{{g.ID, string(g.Kind), g.Title, g.OwnerID, string(g.Mode()), capacity, formatTime(&g.StartAt), state}},
	)
}
