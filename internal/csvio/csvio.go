// Package csvio reads player and coach rows and writes exported rosters as CSV.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/DoyleJ11/coach-draft/internal/engine"
)

const SamplePlayers = `Alice,1
Bob,1
Carl,
Diana,2
Evan,2
Frank,`

const SampleCoaches = `Coach A
Coach B
Coach C`

// ReadRows parses `name[,group]` lines. Blank lines are skipped and cells are trimmed;
// extra columns are ignored.
func ReadRows(r io.Reader) ([]engine.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true // names like O"Brien are plain text

	rows := []engine.Row{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		row := engine.Row{Name: strings.TrimSpace(rec[0])}
		if len(rec) > 1 {
			row.Group = strings.TrimSpace(rec[1])
		}
		rows = append(rows, row)
	}
}

// ReadCoaches parses one coach name per line; anything after the first column is dropped.
func ReadCoaches(r io.Reader) ([]engine.Row, error) {
	rows, err := ReadRows(r)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Group = ""
	}
	return rows, nil
}

// WriteRosters writes a `coach,player,group` header and one line per assigned player.
// A coach with no picks still gets a line with an empty player.
func WriteRosters(w io.Writer, rosters []engine.TeamRoster) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"coach", "player", "group"}); err != nil {
		return err
	}
	for _, team := range rosters {
		if len(team.Players) == 0 {
			if err := cw.Write([]string{team.CoachName, "", ""}); err != nil {
				return err
			}
			continue
		}
		for _, p := range team.Players {
			if err := cw.Write([]string{team.CoachName, p.Name, p.Group}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func isBlank(rec []string) bool {
	return len(rec) == 1 && strings.TrimSpace(rec[0]) == ""
}
