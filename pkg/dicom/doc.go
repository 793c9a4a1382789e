// Package dicom reads the top-level data elements of DICOM Part 10 files with
// github.com/suyashkumar/dicom. The file meta group selects the transfer
// syntax, sequences are dropped before the data set is parsed, and pixel data
// is kept as its raw value field. Only native (uncompressed) pixel data is
// supported.
//
// DataSet accessors never return sentinel values for absent tags. They return an
// Optional that callers check once at the point where a missing value becomes an
// error.
package dicom
