package sheets

import (
	"fmt"

	"demoreport/internal/workbook"
	"demoreport/pkg/contracts/domain"
)

// RegistryVersion identifies the sheet set and order of DefaultRegistry.
// Bump it when a sheet is added, renamed or moved.
const RegistryVersion = 1

// Sheet names in canonical order
const (
	SheetGeneral               = "General"
	SheetPlayers               = "Players"
	SheetRounds                = "Rounds"
	SheetKills                 = "Kills"
	SheetEntryHoldKillsRounds  = "Entry Hold Kills Rounds"
	SheetEntryHoldKillsPlayers = "Entry Hold Kills Players"
	SheetEntryHoldKillsTeams   = "Entry Hold Kills Teams"
	SheetEntryKillsRounds      = "Entry Kills Rounds"
	SheetEntryKillsPlayers     = "Entry Kills Players"
	SheetEntryKillsTeams       = "Entry Kills Teams"
	SheetKillMatrix            = "Kill Matrix"
	SheetFlashMatrixPlayers    = "Flash Matrix Players"
	SheetFlashMatrixTeams      = "Flash Matrix Teams"
)

// Generator appends exactly one sheet, named Name(), to its workbook
type Generator interface {
	Name() string
	Generate() error
}

// Constructor binds a generator to the shared workbook and match
type Constructor func(wb *workbook.Workbook, match *domain.Match) Generator

// Entry is one registered sheet
type Entry struct {
	Name string
	New  Constructor
}

// Registry is an ordered list of sheet constructors. Order is the
// registration order and is never derived at runtime.
type Registry struct {
	entries []Entry
	names   map[string]bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register appends a sheet constructor
func (r *Registry) Register(name string, ctor Constructor) error {
	if name == "" {
		return fmt.Errorf("sheet name cannot be empty")
	}
	if ctor == nil {
		return fmt.Errorf("cannot register nil constructor for %s", name)
	}
	if r.names[name] {
		return fmt.Errorf("sheet %s already registered", name)
	}
	r.names[name] = true
	r.entries = append(r.entries, Entry{Name: name, New: ctor})
	return nil
}

// Entries returns the registered sheets in order
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Names returns the registered sheet names in order
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// Len returns the number of registered sheets
func (r *Registry) Len() int {
	return len(r.entries)
}

// DefaultRegistry returns the 13 report sheets in canonical order
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, e := range []Entry{
		{SheetGeneral, table(SheetGeneral, generalTable)},
		{SheetPlayers, table(SheetPlayers, playersTable)},
		{SheetRounds, table(SheetRounds, roundsTable)},
		{SheetKills, table(SheetKills, killsTable)},
		{SheetEntryHoldKillsRounds, table(SheetEntryHoldKillsRounds, entryRoundsTable(domain.SideCounterTerrorist))},
		{SheetEntryHoldKillsPlayers, table(SheetEntryHoldKillsPlayers, entryPlayersTable(domain.SideCounterTerrorist))},
		{SheetEntryHoldKillsTeams, table(SheetEntryHoldKillsTeams, entryTeamsTable(domain.SideCounterTerrorist))},
		{SheetEntryKillsRounds, table(SheetEntryKillsRounds, entryRoundsTable(domain.SideTerrorist))},
		{SheetEntryKillsPlayers, table(SheetEntryKillsPlayers, entryPlayersTable(domain.SideTerrorist))},
		{SheetEntryKillsTeams, table(SheetEntryKillsTeams, entryTeamsTable(domain.SideTerrorist))},
		{SheetKillMatrix, table(SheetKillMatrix, killMatrixTable)},
		{SheetFlashMatrixPlayers, table(SheetFlashMatrixPlayers, flashPlayersTable)},
		{SheetFlashMatrixTeams, table(SheetFlashMatrixTeams, flashTeamsTable)},
	} {
		if err := r.Register(e.Name, e.New); err != nil {
			panic(err)
		}
	}
	return r
}
