// Package report renders what a run did: the rename mapping as a table or
// YAML, a run summary, and a line diff of the source before and after.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/pyfuscate/pkg/obfuscate"
	"github.com/Sumatoshi-tech/pyfuscate/pkg/transform/rename"
)

const yamlIndent = 2

// WriteMappingTable writes the mapping as a borderless table, one row per
// generated name.
func WriteMappingTable(w io.Writer, mapping rename.Mapping) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"Original", "Generated", "Kind", "Scope", "Depth"})

	for _, entry := range mapping {
		tbl.AppendRow(table.Row{entry.Original, entry.Generated, string(entry.Kind), entry.Scope, entry.Depth})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d names", len(mapping))})

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write mapping table: %w", err)
	}

	return nil
}

// mappingDocument is the YAML layout of a mapping.
type mappingDocument struct {
	Seed     string         `yaml:"seed,omitempty"`
	Mappings []rename.Entry `yaml:"mappings"`
}

// WriteMappingYAML writes the mapping as YAML. The seed is included so the
// same names can be reproduced.
func WriteMappingYAML(w io.Writer, mapping rename.Mapping, seed int64) error {
	doc := mappingDocument{
		Seed:     strconv.FormatInt(seed, 10),
		Mappings: mapping,
	}

	if doc.Mappings == nil {
		doc.Mappings = rename.Mapping{}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err := enc.Encode(doc)
	if err != nil {
		return fmt.Errorf("write mapping yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("write mapping yaml: %w", err)
	}

	return nil
}

// WriteSummary writes a short human-readable account of a run.
func WriteSummary(w io.Writer, result *obfuscate.Result) error {
	kinds := make([]string, 0, len(result.Stats.ByKind))

	for kind := range result.Stats.ByKind {
		kinds = append(kinds, string(kind))
	}

	sort.Strings(kinds)

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false

	tbl.AppendRow(table.Row{"Input", result.Input})
	tbl.AppendRow(table.Row{"Output", result.Output})
	tbl.AppendRow(table.Row{"Size", humanize.Bytes(result.Size)})
	tbl.AppendRow(table.Row{"Lines", fmt.Sprintf("%s -> %s",
		humanize.Comma(int64(result.Lines)), humanize.Comma(int64(result.OutputLines)))})
	tbl.AppendRow(table.Row{"Seed", result.Seed})
	tbl.AppendRow(table.Row{"Names generated", humanize.Comma(int64(result.Stats.Generated))})

	for _, kind := range kinds {
		count := result.Stats.ByKind[rename.IdentKind(kind)]
		tbl.AppendRow(table.Row{"Renamed " + kind, humanize.Comma(int64(count))})
	}

	tbl.AppendRow(table.Row{"Duration", result.Duration.Round(durationPrecision).String()})

	if result.KeptTemp {
		tbl.AppendRow(table.Row{"Intermediate files", result.WorkDir})
	}

	_, err := fmt.Fprintln(w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}
