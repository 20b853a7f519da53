// Package corrections implements the backscatter correction methods.
//
// Every correction kind has a parameter object that selects a method and
// carries its knobs; the object's tagged fields define the step's identity.
// Methods are pure functions from prior backscatter, the raw survey context
// and parameters to a set of named output grids. All values are in dB and
// corrections are applied by addition or subtraction.
//
// Methods are looked up in a registry keyed by kind and method name.
package corrections
