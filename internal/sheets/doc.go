// Package sheets renders a match into the report sheets.
//
// Every sheet is a pure function of the match model; DefaultRegistry fixes
// their order. Entry kills are the first kill of a round made by a
// Terrorist, entry hold kills the first kill of a round made by a
// Counter-Terrorist.
package sheets
