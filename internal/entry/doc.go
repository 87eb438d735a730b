// Package entry defines the bibliographic record model: fields with
// capability properties, entry types, the two schema modes, entries and
// the database that owns them.
//
// Checkers dispatch on Field properties instead of field names, so a
// person-name rule applies to every field marked PropPersonNames.
package entry
