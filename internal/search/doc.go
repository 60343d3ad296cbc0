// Package search enumerates flight itineraries over a static timetable.
//
// An Index groups direct flights by origin. Search walks partial itineraries
// breadth first, pruning every expansion with the leg compatibility checks,
// and Project turns the completed itineraries into price ranked results.
package search
