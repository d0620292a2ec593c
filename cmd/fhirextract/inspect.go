package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ehr/fhirextract/internal/domain/record"
)

type encounterView struct {
	ID      string              `json:"id" yaml:"id"`
	Type    string              `json:"type" yaml:"type"`
	Date    string              `json:"date" yaml:"date"`
	SameDay map[record.Kind]int `json:"same_day" yaml:"same_day"`
}

// inspectReport is what inspect prints for one bundle.
type inspectReport struct {
	Summary        record.Summary           `json:"summary" yaml:"summary"`
	FirstEncounter *encounterView           `json:"first_encounter,omitempty" yaml:"first_encounter,omitempty"`
	Date           string                   `json:"date,omitempty" yaml:"date,omitempty"`
	Events         *record.EventBucket      `json:"events,omitempty" yaml:"events,omitempty"`
	Context        *record.EncounterContext `json:"encounter_context,omitempty" yaml:"encounter_context,omitempty"`
}

func inspectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <bundle.json>",
		Short: "Extract one bundle and print what was found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			date, _ := cmd.Flags().GetString("date")
			encounterID, _ := cmd.Flags().GetString("encounter")
			if rd, _ := cmd.Flags().GetString("reference-date"); rd != "" {
				a.cfg.ReferenceDate = rd
			}

			asOf, err := a.cfg.ReferenceTime(time.Now())
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read bundle: %w", err)
			}
			rec, err := record.Extract(data)
			if err != nil {
				return err
			}
			if !rec.HasPatient() {
				a.logger.Warn().Str("file", args[0]).Msg("bundle has no patient id")
			}
			return writeReport(cmd.OutOrStdout(), format, buildReport(rec, asOf, date, encounterID))
		},
	}
	cmd.Flags().String("format", "text", "Output format: text, json or yaml")
	cmd.Flags().String("date", "", "Also print the events recorded on this date (YYYY-MM-DD)")
	cmd.Flags().String("encounter", "", "Also print the context of this encounter id")
	cmd.Flags().String("reference-date", "", "Date ages are computed on, YYYY-MM-DD (overrides REFERENCE_DATE)")
	return cmd
}

func buildReport(rec *record.PatientRecord, asOf time.Time, date, encounterID string) inspectReport {
	r := inspectReport{Summary: record.Summarize(rec, asOf)}
	if encs := rec.Encounters.All(); len(encs) > 0 {
		first := encs[0]
		r.FirstEncounter = &encounterView{
			ID:      first.ID,
			Type:    first.TypeDisplay,
			Date:    record.DateKey(first.StartDate),
			SameDay: rec.EventsForDate(first.StartDate).Counts(),
		}
	}
	if date != "" {
		r.Date = record.DateKey(date)
		r.Events = rec.EventsForDate(date)
	}
	if encounterID != "" {
		ctx := rec.EncounterContext(encounterID)
		r.Context = &ctx
	}
	return r
}

func writeReport(w io.Writer, format string, r inspectReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		writeText(w, r)
		return nil
	}
	return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
}

func writeText(w io.Writer, r inspectReport) {
	s := r.Summary
	fmt.Fprintf(w, "Patient:   %s (%s)\n", s.Name, s.PatientID)
	fmt.Fprintf(w, "Age:       %d\n", s.Age)
	fmt.Fprintf(w, "Gender:    %s\n", s.Gender)
	fmt.Fprintf(w, "Resources:\n")
	printCounts(w, s.Counts)
	if s.EventDates > 0 {
		fmt.Fprintf(w, "Events:    %d dates, %s to %s\n", s.EventDates, s.FirstEventDate, s.LastEventDate)
	}
	fmt.Fprintf(w, "Links:     %d linked, %d unresolved\n", s.LinkedReferences, s.DroppedReferences)

	if e := r.FirstEncounter; e != nil {
		fmt.Fprintf(w, "\nFirst encounter: %s on %s (%s)\n", e.Type, e.Date, e.ID)
		printCounts(w, e.SameDay)
	}
	if r.Events != nil {
		fmt.Fprintf(w, "\nEvents on %s:\n", r.Date)
		printCounts(w, r.Events.Counts())
	}
	if c := r.Context; c != nil {
		if c.Empty() {
			fmt.Fprintf(w, "\nEncounter context: none\n")
			return
		}
		fmt.Fprintf(w, "\nEncounter context: %s on %s\n", c.Encounter.TypeDisplay, record.DateKey(c.Encounter.StartDate))
		fmt.Fprintf(w, "  %-20s %d\n", "active problems", len(c.ActiveProblems))
		fmt.Fprintf(w, "  %-20s %d\n", "current medications", len(c.CurrentMedications))
		fmt.Fprintf(w, "  %-20s %d\n", "same-day events", c.Events.Len())
	}
}

func printCounts(w io.Writer, counts map[record.Kind]int) {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-20s %d\n", k, counts[record.Kind(k)])
	}
}
