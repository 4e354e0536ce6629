package main

import (
	"time"

	"github.com/spf13/cobra"

	"opacitydb/internal/store"
)

type gridJSON struct {
	ID            int64   `json:"id"`
	Mode          string  `json:"mode"`
	Resolution    float64 `json:"resolution"`
	MinWavelength float64 `json:"min_wavelength_um"`
	MaxWavelength float64 `json:"max_wavelength_um"`
	Stride        int     `json:"stride"`
	Points        int     `json:"points"`
}

type speciesJSON struct {
	Name       string    `json:"name"`
	Source     string    `json:"source,omitempty"`
	RunID      string    `json:"run_id,omitempty"`
	InsertedAt time.Time `json:"inserted_at"`
	Entries    int       `json:"entries"`
	Grid       gridJSON  `json:"grid"`
}

type pairJSON struct {
	Pair         string    `json:"pair"`
	Source       string    `json:"source,omitempty"`
	RunID        string    `json:"run_id,omitempty"`
	InsertedAt   time.Time `json:"inserted_at"`
	Temperatures int       `json:"temperatures"`
	Grid         gridJSON  `json:"grid"`
}

type listOutput struct {
	Species   []speciesJSON `json:"species"`
	Continuum []pairJSON    `json:"continuum"`
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored species and continuum pairs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				species, err := st.ListSpecies(cmd.Context())
				if err != nil {
					return err
				}
				pairs, err := st.ListContinuum(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, toListOutput(species, pairs))
				}
				return writeListing(cmd, species, pairs)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func toGridJSON(g store.GridInfo) gridJSON {
	return gridJSON{
		ID:            g.ID,
		Mode:          string(g.Mode),
		Resolution:    g.Resolution,
		MinWavelength: g.MinWavelength,
		MaxWavelength: g.MaxWavelength,
		Stride:        g.Stride,
		Points:        g.Points,
	}
}

func toListOutput(species []store.SpeciesInfo, pairs []store.PairInfo) listOutput {
	out := listOutput{
		Species:   make([]speciesJSON, 0, len(species)),
		Continuum: make([]pairJSON, 0, len(pairs)),
	}
	for _, s := range species {
		out.Species = append(out.Species, speciesJSON{
			Name:       s.Name,
			Source:     s.Source,
			RunID:      s.RunID,
			InsertedAt: s.InsertedAt,
			Entries:    s.Entries,
			Grid:       toGridJSON(s.Grid),
		})
	}
	for _, p := range pairs {
		out.Continuum = append(out.Continuum, pairJSON{
			Pair:         p.Pair,
			Source:       p.Source,
			RunID:        p.RunID,
			InsertedAt:   p.InsertedAt,
			Temperatures: p.Temperatures,
			Grid:         toGridJSON(p.Grid),
		})
	}
	return out
}

func writeListing(cmd *cobra.Command, species []store.SpeciesInfo, pairs []store.PairInfo) error {
	out := cmd.OutOrStdout()
	headers := []string{"Name", "Kind", "Entries", "R", "Stride", "Points", "Inserted"}
	rows := make([][]string, 0, len(species)+len(pairs))
	for _, s := range species {
		rows = append(rows, []string{
			s.Name, "molecular", formatCount(s.Entries), formatFloat(s.Grid.Resolution),
			formatCount(s.Grid.Stride), formatCount(s.Grid.Points), formatTime(s.InsertedAt),
		})
	}
	for _, p := range pairs {
		rows = append(rows, []string{
			p.Pair, "continuum", formatCount(p.Temperatures), formatFloat(p.Grid.Resolution),
			formatCount(p.Grid.Stride), formatCount(p.Grid.Points), formatTime(p.InsertedAt),
		})
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft}
	return writeRows(out, headers, rows, aligns)
}
