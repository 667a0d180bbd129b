// Package value provides the JSON-like document tree shared by scene
// configuration and result reports.
//
// A Value is one of Null, String, Number, Bool, Array, Object or Blob.
// Blob carries an in-memory payload (decoded images) that never reaches
// disk as JSON; it must be replaced before canonical marshaling.
//
// This package imports nothing internal. Scene definitions and report
// fragments are both Objects, and both are combined with Merge.
package value
