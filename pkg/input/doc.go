// Package input reads response matrices and section definitions from CSV,
// JSON and YAML files.
package input
