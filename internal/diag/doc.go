// Package diag holds the diagnostic model of the compiler driver.
//
// A Diagnostic carries a severity, a stable Code (IO1xxx for inputs,
// LAY2xxx for module tables, CG4xxx for code generation), a message and
// the qualified function it concerns. Phases report through a Reporter;
// BagReporter collects into a Bag, which sorts and deduplicates so the
// printed order is stable across parallel runs. Pretty renders a Bag for
// terminals.
package diag
